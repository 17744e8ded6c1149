package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
	n     int
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int, error) {
	p.calls.Add(1)
	return p.n, p.err
}

type purgeTotal struct{ total atomic.Int64 }

func (c *purgeTotal) ObservePurged(n int) { c.total.Add(int64(n)) }

func TestRunPurger_TicksUntilCancelled(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := &countingPurger{n: 2}
	counter := &purgeTotal{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runPurger(ctx, log, p, 5*time.Millisecond, counter)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for p.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("purger did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("purger did not stop")
	}
	if counter.total.Load() < 4 {
		t.Fatalf("purged total=%d", counter.total.Load())
	}
}

func TestRunPurger_DisabledReturnsImmediately(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := &countingPurger{}
	runPurger(context.Background(), log, p, 0, nil)
	runPurger(context.Background(), log, nil, time.Second, nil)
	if p.calls.Load() != 0 {
		t.Fatalf("disabled purger ran")
	}
}

func TestPurgeOnce_FailureIsNotCounted(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := &countingPurger{n: 3, err: errors.New("db down")}
	counter := &purgeTotal{}
	purgeOnce(context.Background(), log, p, time.Second, counter)
	if counter.total.Load() != 0 {
		t.Fatalf("failed run must not be counted")
	}
}
