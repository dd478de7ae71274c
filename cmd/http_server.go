package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/authz"
	"github.com/frahmantamala/workshop-management/internal/core/events"
	"github.com/frahmantamala/workshop-management/internal/hiring"
	hiringPostgres "github.com/frahmantamala/workshop-management/internal/hiring/postgres"
	"github.com/frahmantamala/workshop-management/internal/identity"
	"github.com/frahmantamala/workshop-management/internal/order"
	orderPostgres "github.com/frahmantamala/workshop-management/internal/order/postgres"
	"github.com/frahmantamala/workshop-management/internal/tenant"
	tenantPostgres "github.com/frahmantamala/workshop-management/internal/tenant/postgres"
	"github.com/frahmantamala/workshop-management/internal/transport"
	"github.com/frahmantamala/workshop-management/internal/transport/rest"
	"github.com/frahmantamala/workshop-management/internal/user"
	userPostgres "github.com/frahmantamala/workshop-management/internal/user/postgres"
	"github.com/frahmantamala/workshop-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *gorm.DB
	Router   *chi.Mux
	Sweeper  *hiring.Sweeper
	EventBus *events.EventBus
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := deps.Sweeper.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start queue sweeper: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		deps.Sweeper.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.EventBus.Drain(ctx); err != nil {
			slog.Error("Event bus drain error", "error", err)
		}
		if sqlDB, err := deps.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("Database close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	userRepo := userPostgres.NewUserRepository(db)
	tenantRepo := tenantPostgres.NewTenantRepository(db)
	hiringRepo := hiringPostgres.NewHiringRepository(db)
	orderRepo := orderPostgres.NewOrderRepository(db)

	userService := user.NewService(userRepo, lg)
	directory := tenant.NewDirectory(tenantRepo, userService, eventBus, lg)
	hiringService := hiring.NewService(hiringRepo, userService, directory, eventBus, config.Hiring.QueueTTL, lg)
	orderService := order.NewService(orderRepo, directory, lg)

	authorizer := authz.NewAuthorizer(userService, directory, lg)
	base := transport.NewBaseHandler(lg)
	gate := authz.NewGate(authorizer, base)

	verifier := identity.NewVerifier(config.Telegram.BotToken, config.Telegram.InitDataMaxAge)
	identityMiddleware := identity.Middleware(verifier, userService, base)

	sweeper := hiring.NewSweeper(hiringService, config.Hiring.SweepSchedule, lg)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap database handle: %w", err)
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		sqlDB,
		config.Server.AllowedOrigins,
		identityMiddleware,
		gate,
		user.NewHandler(userService),
		tenant.NewHandler(directory),
		hiring.NewHandler(hiringService),
		order.NewHandler(orderService),
		lg,
	)

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		Router:   router,
		Sweeper:  sweeper,
		EventBus: eventBus,
	}, nil
}

// initDB opens the gorm connection and configures the pool.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = gormsqlite.Open(cfg.Source)
	default:
		dialector = gormpostgres.Open(cfg.Source)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
