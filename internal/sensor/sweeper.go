package sensor

import (
	"context"
	"log/slog"
	"time"
)

// OfflineNotifier is told about every sensor the sweeper marks offline.
type OfflineNotifier interface {
	SensorOffline(ctx context.Context, s Sensor) error
}

// OfflineSweeper periodically marks silent sensors offline.
type OfflineSweeper struct {
	repo         Repository
	notifier     OfflineNotifier
	offlineAfter time.Duration
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewOfflineSweeper creates a sweeper. notifier may be nil.
func NewOfflineSweeper(repo Repository, notifier OfflineNotifier, offlineAfter, interval time.Duration, logger *slog.Logger) *OfflineSweeper {
	return &OfflineSweeper{
		repo:         repo,
		notifier:     notifier,
		offlineAfter: offlineAfter,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (w *OfflineSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("sensor offline sweep failed", "error", err)
			}
		}
	}
}

// Sweep marks sensors not seen within offlineAfter as offline and returns
// how many changed.
func (w *OfflineSweeper) Sweep(ctx context.Context) (int, error) {
	stale, err := w.repo.MarkStaleOffline(ctx, w.now().Add(-w.offlineAfter))
	if err != nil {
		return 0, err
	}

	for _, s := range stale {
		w.logger.Info("sensor marked offline", "device_id", s.DeviceID)
		if w.notifier == nil || s.Owner == 0 {
			continue
		}
		if err := w.notifier.SensorOffline(ctx, s); err != nil {
			w.logger.Error("raising offline alert", "device_id", s.DeviceID, "error", err)
		}
	}
	return len(stale), nil
}
