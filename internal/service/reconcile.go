package service

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ReconcileStore defines the DB methods the reconciler sweeps with.
// Satisfied by *database.Queries.
type ReconcileStore interface {
	ClearExpiredGlobalPause(ctx context.Context) (int64, error)
	ClearExpiredBranchPauses(ctx context.Context) (int64, error)
	DeleteExpiredChatbotSessions(ctx context.Context) (int64, error)
}

// Reconciler persists time-based state changes: it lifts pauses whose
// resume time has passed and purges expired chatbot sessions. Because the
// deadlines live in the database, a restart loses nothing.
type Reconciler struct {
	store    ReconcileStore
	interval time.Duration
}

// NewReconciler creates a Reconciler that sweeps every interval.
func NewReconciler(store ReconcileStore, interval time.Duration) *Reconciler {
	return &Reconciler{store: store, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Sweep(ctx); err != nil {
			log.Printf("ERROR: reconcile: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep runs a single reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) error {
	n, err := r.store.ClearExpiredGlobalPause(ctx)
	if err != nil {
		return fmt.Errorf("clear expired global pause: %w", err)
	}
	if n > 0 {
		log.Printf("global pause expired, ordering resumed")
	}

	n, err = r.store.ClearExpiredBranchPauses(ctx)
	if err != nil {
		return fmt.Errorf("clear expired branch pauses: %w", err)
	}
	if n > 0 {
		log.Printf("resumed %d branch(es) after pause expiry", n)
	}

	if _, err := r.store.DeleteExpiredChatbotSessions(ctx); err != nil {
		return fmt.Errorf("delete expired chatbot sessions: %w", err)
	}
	return nil
}
