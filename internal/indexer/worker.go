package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/heliograph-labs/heliograph/internal/ledger"
)

// ErrBusy is returned when a pass is requested while another pass for the
// same stream is in flight.
var ErrBusy = errors.New("a synchronization pass is already in flight")

// Gate enforces the single-writer rule for one stream: at most one worker
// tick or replay invocation applies events at a time. A tick that finds
// the gate held is skipped, never queued.
type Gate struct {
	mu sync.Mutex
}

func (g *Gate) TryAcquire() bool { return g.mu.TryLock() }
func (g *Gate) Release()         { g.mu.Unlock() }

// Worker polls the ledger on a fixed interval and drives the pipeline.
// Two states: idle and ticking; overlapping ticks collapse to one.
type Worker struct {
	runner     *Runner
	gate       *Gate
	interval   time.Duration
	limit      int
	commitment ledger.Commitment
}

func NewWorker(runner *Runner, gate *Gate, interval time.Duration, limit int, commitment ledger.Commitment) *Worker {
	return &Worker{
		runner:     runner,
		gate:       gate,
		interval:   interval,
		limit:      limit,
		commitment: commitment,
	}
}

// Start runs the poll loop until the context is cancelled. An in-flight
// tick finishes before Start returns; a tick failure is logged and the
// next interval retries from the untouched watermark.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("[Worker] Starting indexer worker",
		"interval", w.interval,
		"lookback_limit", w.limit,
		"commitment", w.commitment,
	)

	// Catch up immediately instead of waiting out the first interval.
	w.tick(ctx)

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			slog.Info("[Worker] Stopping (context cancelled)")
			return nil
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if !w.gate.TryAcquire() {
		// A previous tick or a replay is still applying; skipping keeps
		// ticks from interleaving against the same stream.
		slog.Debug("[Worker] Tick skipped, pass in flight")
		return
	}
	defer w.gate.Release()

	result, err := w.runner.RunPass(ctx, PassOptions{
		Limit:      w.limit,
		Commitment: w.commitment,
	})
	if err != nil {
		slog.Error("[Worker] Tick failed", "error", err)
		return
	}

	if result.TransactionsScanned > 0 {
		slog.Info("[Worker] Tick complete",
			"transactions_scanned", result.TransactionsScanned,
			"events_applied", result.ProcessedEventCount,
		)
	}
}
