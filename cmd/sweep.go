package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/workshop-management/internal/core/events"
	"github.com/frahmantamala/workshop-management/internal/hiring"
	hiringPostgres "github.com/frahmantamala/workshop-management/internal/hiring/postgres"
	"github.com/frahmantamala/workshop-management/internal/tenant"
	tenantPostgres "github.com/frahmantamala/workshop-management/internal/tenant/postgres"
	"github.com/frahmantamala/workshop-management/internal/user"
	userPostgres "github.com/frahmantamala/workshop-management/internal/user/postgres"
	"github.com/frahmantamala/workshop-management/pkg/logger"
)

// sweepCmd runs one expiry sweep and exits. The server runs the same sweep
// hourly; this exists for cron-style deployments and manual cleanup.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire stale hiring queue entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
		lg := logger.LoggerWrapper()

		db, err := initDB(config.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()

		eventBus := events.NewEventBus(lg)
		userService := user.NewService(userPostgres.NewUserRepository(db), lg)
		directory := tenant.NewDirectory(tenantPostgres.NewTenantRepository(db), userService, eventBus, lg)
		hiringService := hiring.NewService(hiringPostgres.NewHiringRepository(db), userService, directory, eventBus, config.Hiring.QueueTTL, lg)

		count, err := hiringService.SweepExpired(context.Background())
		if err != nil {
			return err
		}

		lg.Info("sweep finished", "expired", count)
		return nil
	},
}
