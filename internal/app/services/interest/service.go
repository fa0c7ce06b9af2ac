// Package interest runs the weekly interest cycle on a cron schedule.
package interest

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/classbank/ledger/pkg/logger"
)

// DefaultSchedule fires every Monday at 08:00 local time.
const DefaultSchedule = "0 8 * * 1"

// Advancer applies one week of interest. Implemented by the ledger service.
type Advancer interface {
	AdvanceWeek(ctx context.Context) (int, error)
}

// Service schedules AdvanceWeek through a cron runner. It owns no economic
// logic; the ledger keeps all writes behind its own lock, so the scheduler
// firing while the API is busy is safe.
type Service struct {
	ledger   Advancer
	schedule string
	log      *logger.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// New creates an interest scheduler. An empty schedule falls back to
// DefaultSchedule.
func New(ledger Advancer, schedule string, log *logger.Logger) *Service {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logger.NewDefault("interest")
	}
	return &Service{
		ledger:   ledger,
		schedule: schedule,
		log:      log,
	}
}

// Name implements system.Service.
func (s *Service) Name() string { return "interest" }

// Start validates the schedule and begins firing.
func (s *Service) Start(ctx context.Context) error {
	s.cron = cron.New()
	id, err := s.cron.AddFunc(s.schedule, s.tick)
	if err != nil {
		return fmt.Errorf("invalid interest schedule %q: %w", s.schedule, err)
	}
	s.entryID = id
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("interest scheduler started")
	return nil
}

// Stop halts the scheduler and waits for an in-flight cycle to finish.
func (s *Service) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("interest scheduler stopped")
	return nil
}

func (s *Service) tick() {
	n, err := s.ledger.AdvanceWeek(context.Background())
	if err != nil {
		s.log.WithError(err).Error("weekly interest cycle failed")
		return
	}
	s.log.WithField("students", n).Info("weekly interest applied")
}
