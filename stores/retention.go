package stores

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionSweeper periodically deletes search-history entries older than the
// configured retention window.
type RetentionSweeper struct {
	store     Store
	retention time.Duration
	schedule  string
	scheduler *cron.Cron
}

// NewRetentionSweeper builds a sweeper. schedule is a standard cron
// expression; empty means daily at 03:00.
func NewRetentionSweeper(store Store, retention time.Duration, schedule string) *RetentionSweeper {
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	return &RetentionSweeper{
		store:     store,
		retention: retention,
		schedule:  schedule,
	}
}

// Start registers the sweep job and starts the scheduler.
func (r *RetentionSweeper) Start() error {
	if r.retention <= 0 {
		return fmt.Errorf("retention must be positive, got %v", r.retention)
	}
	r.scheduler = cron.New()
	if _, err := r.scheduler.AddFunc(r.schedule, r.Sweep); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", r.schedule, err)
	}
	r.scheduler.Start()
	log.Printf("[RETENTION] sweeper started, schedule=%q window=%v", r.schedule, r.retention)
	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (r *RetentionSweeper) Stop() {
	if r.scheduler == nil {
		return
	}
	ctx := r.scheduler.Stop()
	<-ctx.Done()
}

// Sweep runs one purge pass immediately.
func (r *RetentionSweeper) Sweep() {
	cutoff := time.Now().Add(-r.retention)
	removed, err := r.store.PurgeSearchHistoryBefore(cutoff)
	if err != nil {
		log.Printf("[RETENTION] purge failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[RETENTION] purged %d search history entries older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
