// Command pos_token prints a signed API token for a till or an admin.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ridloal/punto-venta/internal/platform/auth"
	"github.com/ridloal/punto-venta/internal/platform/config"
	"github.com/ridloal/punto-venta/internal/platform/logger"
)

func main() {
	subject := flag.String("subject", "caja-1", "token subject")
	role := flag.String("role", auth.RoleClerk, "role: admin or clerk")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Error("Failed to load configuration", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is not set", nil)
		os.Exit(1)
	}
	if *role != auth.RoleAdmin && *role != auth.RoleClerk {
		logger.Error("Unknown role "+*role, nil)
		os.Exit(1)
	}

	token, err := auth.IssueToken(cfg.JWTSecret, *subject, *role, *ttl)
	if err != nil {
		logger.Error("Failed to sign token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
