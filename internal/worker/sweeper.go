package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"docgate/internal/storage"
)

// ScratchSweeper periodically removes abandoned workspaces from the scratch root.
type ScratchSweeper struct {
	store    storage.Storage
	interval time.Duration
	ttl      time.Duration
	log      logrus.FieldLogger
}

// NewScratchSweeper returns a sweeper that removes workspaces older than ttl
// from store every interval.
func NewScratchSweeper(store storage.Storage, interval, ttl time.Duration, log logrus.FieldLogger) *ScratchSweeper {
	return &ScratchSweeper{
		store:    store,
		interval: interval,
		ttl:      ttl,
		log:      log.WithField("component", "sweeper"),
	}
}

// Start blocks until ctx is done. A non-positive interval disables the sweeper.
func (w *ScratchSweeper) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info("scratch sweeper disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithFields(logrus.Fields{
		"interval": w.interval.String(),
		"ttl":      w.ttl.String(),
	}).Info("scratch sweeper started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("scratch sweeper stopped")
			return
		case <-ticker.C:
			w.sweepOnce()
		}
	}
}

func (w *ScratchSweeper) sweepOnce() {
	n, err := w.store.Sweep(w.ttl)
	if err != nil {
		w.log.WithError(err).Error("scratch sweep failed")
		return
	}
	if n > 0 {
		w.log.WithField("removed", n).Info("expired workspaces removed")
		return
	}
	w.log.Debug("no expired workspaces")
}
