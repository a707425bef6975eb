package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// sweepTimeout bounds a single sweep, which is not cancelled by shutdown.
const sweepTimeout = time.Minute

// Reclaimer deletes expired links and reports how many were removed.
type Reclaimer interface {
	ReclaimExpired(ctx context.Context) (int64, error)
}

// ExpiryReclaimer periodically removes expired links from the store.
type ExpiryReclaimer struct {
	reclaimer Reclaimer
	interval  time.Duration
	log       *logrus.Entry
}

// NewExpiryReclaimer creates a reclaimer sweeping every interval (30 minutes when not positive).
func NewExpiryReclaimer(reclaimer Reclaimer, interval time.Duration, logger *logrus.Logger) *ExpiryReclaimer {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &ExpiryReclaimer{
		reclaimer: reclaimer,
		interval:  interval,
		log:       logger.WithField("module", "monitor/reclaimer"),
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Cancellation only interrupts the wait: a sweep in progress runs to completion.
func (m *ExpiryReclaimer) Run(ctx context.Context) {
	m.log.Infof("Starting expiry reclaimer with interval of %v...", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("expiry reclaimer stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep runs one reclaim pass. Errors are logged, never returned.
func (m *ExpiryReclaimer) sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), sweepTimeout)
	defer cancel()

	removed, err := m.reclaimer.ReclaimExpired(ctx)
	if err != nil {
		m.log.WithError(err).Error("expiry sweep failed")
		return
	}
	m.log.WithField("removed", removed).Info("expiry sweep completed")
}
