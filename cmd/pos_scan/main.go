// Command pos_scan reads barcodes from a keyboard-wedge scanner on stdin and
// adds each one to the configured terminal's cart.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ridloal/punto-venta/internal/platform/config"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/scanner"
	"github.com/ridloal/punto-venta/internal/terminal"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		logger.Error("Failed to load configuration", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := terminal.NewHTTPClient(cfg.POSServiceURL, cfg.TerminalID, cfg.APIToken, cfg.RESTTimeout)
	src := scanner.NewLineSource(os.Stdin)
	logger.Info("Scanning for terminal %s against %s", cfg.TerminalID, cfg.POSServiceURL)

	for {
		code, err := scanner.ScanOnce(ctx, src, scanner.DigitsDecoder{})
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, scanner.ErrSourceClosed):
			logger.Info("Scanner stopped")
			return
		case err != nil:
			logger.Error("Scan failed", err)
			os.Exit(1)
		}

		snap, err := client.Scan(ctx, code)
		if errors.Is(err, terminal.ErrNotFound) {
			logger.Warn("No product with barcode %s", code)
			continue
		}
		if err != nil {
			logger.Error("Failed to add scanned product", err, logger.Fields{"barcode": code})
			continue
		}
		logger.Info("Added %s: %d items, total %s", code, len(snap.Items), snap.Total.StringFixed(0))
	}
}
