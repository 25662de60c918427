package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/ridloal/punto-venta/internal/cart"
	catalogAPI "github.com/ridloal/punto-venta/internal/catalog/api"
	catalogDomain "github.com/ridloal/punto-venta/internal/catalog/domain"
	catalogRepo "github.com/ridloal/punto-venta/internal/catalog/repository"
	catalogService "github.com/ridloal/punto-venta/internal/catalog/service"
	"github.com/ridloal/punto-venta/internal/platform/auth"
	"github.com/ridloal/punto-venta/internal/platform/config"
	"github.com/ridloal/punto-venta/internal/platform/database"
	"github.com/ridloal/punto-venta/internal/platform/eventbus"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	"github.com/ridloal/punto-venta/internal/platform/postgrest"
	salesAPI "github.com/ridloal/punto-venta/internal/sales/api"
	salesRepo "github.com/ridloal/punto-venta/internal/sales/repository"
	salesService "github.com/ridloal/punto-venta/internal/sales/service"
	"github.com/shopspring/decimal"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	catalog catalogRepo.CatalogStore
	sales   salesRepo.SalesStore
	feed    catalogRepo.ChangeFeed
	db      *sqlx.DB
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.StoreBackend == config.BackendREST {
		checkServiceKey(cfg.SupabaseKey)
		client := postgrest.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.RESTTimeout)
		logger.Info("Using PostgREST store at %s", client.BaseURL)
		return &stores{
			catalog: catalogRepo.NewRESTCatalogStore(client),
			sales:   salesRepo.NewRESTSalesStore(client),
			feed:    catalogRepo.NewPollingChangeFeed(client, cfg.ChangePollSpec),
		}, nil
	}

	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &stores{
		catalog: catalogRepo.NewPostgresCatalogStore(db),
		sales:   salesRepo.NewPostgresSalesStore(db),
		feed:    catalogRepo.NewPostgresChangeFeed(cfg.DatabaseDSN),
		db:      db,
	}, nil
}

// checkServiceKey warns about keys that will be rejected or that bypass
// row level security.
func checkServiceKey(key string) {
	info, err := auth.InspectServiceKey(key)
	if err != nil {
		logger.Warn("SUPABASE_KEY does not look like a Supabase key: %v", err)
		return
	}
	if !info.ExpiresAt.IsZero() && info.ExpiresAt.Before(time.Now()) {
		logger.Warn("SUPABASE_KEY expired at %s", info.ExpiresAt.Format(time.RFC3339))
	}
	if info.Role == "service_role" {
		logger.Warn("SUPABASE_KEY is a service_role key; row level security is bypassed")
	}
}

func newPublisher(cfg config.Config) eventbus.Publisher {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, domain events are discarded")
		return eventbus.NopPublisher{}
	}
	pub, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, domain events are discarded", err)
		return eventbus.NopPublisher{}
	}
	return pub
}

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		logger.Error("Failed to load configuration", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", err)
		os.Exit(1)
	}
	logger.Info("Starting %s (store backend %s)", cfg.AppName, cfg.StoreBackend)

	// Prices go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open the store", err)
		os.Exit(1)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	publisher := newPublisher(cfg)
	defer publisher.Close()

	// Setup Dependencies
	notifier := catalogService.NewNotifier(st.feed)
	maintenance := catalogService.NewMaintenance(st.catalog)
	resolver := catalogService.NewResolver(st.catalog)
	carts := cart.NewRegistry(cfg.SuccessNoticeTTL)
	checkout := salesService.NewCheckoutService(carts, salesService.NewSubmitter(st.sales), publisher)
	summary := salesService.NewSummaryService(st.sales, cfg.Location())

	defer notifier.Register(maintenance.HandleChange)()
	defer notifier.Register(func(ev catalogDomain.ChangeEvent) {
		if err := publisher.Publish(ctx, eventbus.RoutingCatalogChanged, ev); err != nil {
			logger.Error("Failed to publish catalog change", err)
		}
	})()
	if err := notifier.Start(ctx); err != nil {
		// Without a feed the view still refreshes after local writes.
		logger.Warn("Catalog change feed unavailable: %v", err)
	}
	defer notifier.Stop()

	if err := maintenance.Refresh(ctx); err != nil {
		logger.Warn("Initial catalog load failed: %v", err)
	}

	productHandler := catalogAPI.NewProductHandler(st.catalog, maintenance, resolver, notifier)
	salesHandler := salesAPI.NewSalesHandler(carts, st.catalog, resolver, checkout, st.sales, summary)

	// Setup Gin Router
	router := gin.Default()
	router.RedirectTrailingSlash = false
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"backend":   cfg.StoreBackend,
			"listeners": notifier.Listeners(),
			"terminals": len(carts.Terminals()),
		})
	})

	apiV1 := router.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1, cfg.JWTSecret)
	salesHandler.RegisterRoutes(apiV1, cfg.JWTSecret)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, the API is open")
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: corsHandler(router),
	}

	go func() {
		logger.Info("POS service listening on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("POS service failed to start or crashed", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("POS service shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
	cancel()
}
