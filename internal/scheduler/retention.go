package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/store"
)

// Retention periodically deletes client identities that have been idle
// longer than the configured number of days, together with their solves
// and challenge state.
type Retention struct {
	identities *store.IdentityStore
	days       int
	cron       *cron.Cron
}

// NewRetention builds the job. days <= 0 disables it.
func NewRetention(identities *store.IdentityStore, days int) *Retention {
	return &Retention{identities: identities, days: days, cron: cron.New()}
}

// Start schedules the nightly sweep. No-op when retention is disabled.
func (r *Retention) Start() error {
	if r.days <= 0 {
		return nil
	}
	if _, err := r.cron.AddFunc("@midnight", r.sweep); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the scheduler.
func (r *Retention) Stop() {
	r.cron.Stop()
}

func (r *Retention) sweep() {
	cutoff := time.Now().AddDate(0, 0, -r.days)
	removed, err := r.identities.DeleteIdleBefore(cutoff)
	if err != nil {
		logger.Log().WithError(err).Warn("retention sweep failed")
		return
	}
	if removed > 0 {
		logger.WithFields(map[string]interface{}{"removed": removed}).Info("retention sweep removed idle clients")
	}
}
