// Package app wires stores and services into one lifecycle-managed
// application.
package app

import (
	"context"
	"fmt"

	"github.com/classbank/ledger/internal/app/services/interest"
	"github.com/classbank/ledger/internal/app/services/ledger"
	"github.com/classbank/ledger/internal/app/services/query"
	"github.com/classbank/ledger/internal/app/storage"
	"github.com/classbank/ledger/internal/app/storage/memory"
	"github.com/classbank/ledger/internal/app/system"
	"github.com/classbank/ledger/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Students storage.StudentStore
	Missions storage.MissionStore
	Rewards  storage.RewardStore
	Pending  storage.PendingRewardStore
}

// Options tunes application behaviour beyond the stores.
type Options struct {
	// InterestSchedule is a cron expression for the weekly interest cycle.
	// Empty uses the default weekly schedule.
	InterestSchedule string
}

// Application ties the ledger, query and interest services together and
// manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Ledger *ledger.Service
	Query  *query.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Students == nil {
		stores.Students = mem
	}
	if stores.Missions == nil {
		stores.Missions = mem
	}
	if stores.Rewards == nil {
		stores.Rewards = mem
	}
	if stores.Pending == nil {
		stores.Pending = mem
	}

	manager := system.NewManager()

	ledgerService := ledger.New(stores.Students, stores.Missions, stores.Rewards, stores.Pending, log)
	queryService := query.New(stores.Students, stores.Missions, stores.Rewards, stores.Pending)
	interestService := interest.New(ledgerService, opts.InterestSchedule, log)

	if err := manager.Register(interestService); err != nil {
		return nil, fmt.Errorf("register interest service: %w", err)
	}

	return &Application{
		manager: manager,
		log:     log,
		Ledger:  ledgerService,
		Query:   queryService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
