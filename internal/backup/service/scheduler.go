package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the daily automatic backup at a configured wall-clock
// time. cron recomputes the next fire time from the wall clock on every
// run, so a sleeping or suspended host catches up at the next tick
// instead of drifting.
type Scheduler struct {
	cron    *cron.Cron
	service *BackupService
	dailyAt string
	logger  *logger.Logger
}

// NewScheduler creates a scheduler firing daily at "HH:MM".
func NewScheduler(svc *BackupService, dailyAt string, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: svc,
		dailyAt: dailyAt,
		logger:  log.WithComponent("backup-scheduler"),
	}
}

func cronSpec(dailyAt string) (string, error) {
	parts := strings.SplitN(dailyAt, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid daily backup time %q, want HH:MM", dailyAt)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(dailyAt, "%d:%d", &hour, &minute); err != nil {
		return "", fmt.Errorf("invalid daily backup time %q: %w", dailyAt, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid daily backup time %q", dailyAt)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Start registers the daily job and starts the cron loop.
func (s *Scheduler) Start() error {
	spec, err := cronSpec(s.dailyAt)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(spec, s.run)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("daily_at", s.dailyAt).Msg("automatic daily backup scheduled")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run() {
	// The job acts as the system administrator; a human admin triggering
	// the same operation goes through the HTTP handler instead.
	ctx := actor.WithActor(context.Background(), &actor.Actor{
		Username: "system",
		Role:     actor.RoleAdmin,
	})

	entry, err := s.service.Backup(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("automatic backup failed")
		return
	}
	s.logger.Info().Int64("id", entry.ID).Str("file", entry.FilePath).Msg("automatic backup completed")
}
