package imap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Praneeth-A/onebox/internal/models"
	"github.com/Praneeth-A/onebox/internal/store"
)

// Orchestrator starts one connection supervisor per configured account and
// answers aggregate statistics queries. Accounts run independently; the
// orchestrator never waits for one account to serve another.
type Orchestrator struct {
	store       store.EmailStore
	processor   *Processor
	opts        SupervisorOptions
	log         *logrus.Logger
	supervisors map[string]*Supervisor
}

// NewOrchestrator creates an orchestrator. Supervisors are created lazily
// when Start is called.
func NewOrchestrator(emailStore store.EmailStore, processor *Processor, opts SupervisorOptions, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		store:       emailStore,
		processor:   processor,
		opts:        opts,
		log:         log,
		supervisors: make(map[string]*Supervisor),
	}
}

// Start ensures the index exists, then launches one supervisor goroutine per
// account without waiting for any of them. A schema failure is the only
// fatal condition here.
func (o *Orchestrator) Start(ctx context.Context, accounts []models.Account) error {
	if err := o.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure index schema: %w", err)
	}

	for _, account := range accounts {
		supervisor := NewSupervisor(account, o.processor, o.opts, o.log)
		o.supervisors[account.ID] = supervisor
		go supervisor.Run(ctx)
		o.log.WithField("account", account.ID).Info("Started account supervisor")
	}

	return nil
}

// States returns a snapshot of every account's connection state.
func (o *Orchestrator) States() map[string]models.ConnState {
	states := make(map[string]models.ConnState, len(o.supervisors))
	for id, supervisor := range o.supervisors {
		states[id] = supervisor.State()
	}
	return states
}

// Stats returns indexed message counts grouped by account, folder and folder
// type. Read-only reporting, off the sync hot path.
func (o *Orchestrator) Stats(ctx context.Context) (*models.SyncStats, error) {
	buckets, err := o.store.CountByAccountFolder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	stats := &models.SyncStats{
		ByAccount: make(map[string]int64),
		Buckets:   buckets,
	}
	for _, bucket := range buckets {
		stats.Total += bucket.Count
		stats.ByAccount[bucket.Account] += bucket.Count
	}

	return stats, nil
}
