package app

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes lapsed invitations.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

type purgeCounter interface {
	ObservePurged(n int)
}

// runPurger calls p every interval until ctx is done. A failed run is logged
// and retried on the next tick.
func runPurger(ctx context.Context, log *slog.Logger, p Purger, interval time.Duration, counter purgeCounter) {
	if p == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("purge.start", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			log.Info("purge.stop")
			return
		case <-ticker.C:
			purgeOnce(ctx, log, p, interval, counter)
		}
	}
}

func purgeOnce(ctx context.Context, log *slog.Logger, p Purger, timeout time.Duration, counter purgeCounter) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := p.PurgeExpired(runCtx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("purge.run.fail", "err", err)
		}
		return
	}
	if counter != nil {
		counter.ObservePurged(n)
	}
	if n > 0 {
		log.Info("purge.run", "purged", n)
	}
}
