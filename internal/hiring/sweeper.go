package hiring

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the expiry sweep on a cron schedule, hourly by default.
type Sweeper struct {
	service  *Service
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
}

func NewSweeper(service *Service, schedule string, logger *slog.Logger) *Sweeper {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Sweeper{
		service:  service,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.service.SweepExpired(context.Background()); err != nil {
			s.logger.Error("scheduled expiry sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("hiring queue sweeper started", "schedule", s.schedule)
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("hiring queue sweeper stopped")
}
