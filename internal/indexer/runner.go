// Package indexer is the ledger-to-store synchronization engine: it
// discovers new program transactions, decodes them into canonical events
// and applies them to the mirror with replay-safe semantics.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heliograph-labs/heliograph/internal/decode"
	"github.com/heliograph-labs/heliograph/internal/ledger"
	"github.com/heliograph-labs/heliograph/internal/normalize"
	"github.com/heliograph-labs/heliograph/internal/store"
)

// fetchParallelism bounds concurrent transaction fetch+decode within one
// pass. Apply stays strictly sequential regardless.
const fetchParallelism = 4

// Decoder turns one raw transaction into typed records.
type Decoder interface {
	Decode(tx *ledger.Transaction) []decode.Record
}

// Runner drives one full pipeline pass: list candidates, decode, apply,
// advance the watermark. It is invoked by the worker's tick and by the
// replay trigger; callers serialize through the shared gate.
type Runner struct {
	client    ledger.Client
	decoder   Decoder
	applier   *Applier
	cursor    store.CursorStore
	streamKey string
}

func NewRunner(client ledger.Client, decoder Decoder, applier *Applier, cursor store.CursorStore, streamKey string) *Runner {
	return &Runner{
		client:    client,
		decoder:   decoder,
		applier:   applier,
		cursor:    cursor,
		streamKey: streamKey,
	}
}

// PassOptions parameterize one pass.
type PassOptions struct {
	// Before lists transactions strictly older than this signature
	// (manual backfill). Empty means "everything newer than the
	// watermark".
	Before     string
	Limit      int
	Commitment ledger.Commitment
}

// PassResult is what one pass (or single-transaction replay) did.
type PassResult struct {
	ProcessedEventCount int `json:"processedEventCount"`
	TransactionsScanned int `json:"transactionsScanned"`
}

// decodedTx is the prefetch product for one candidate transaction.
type decodedTx struct {
	info   ledger.SignatureInfo
	events []normalize.Event
	err    error
}

// RunPass executes one synchronization pass and advances the watermark
// behind each applied transaction. A per-transaction failure aborts the
// remainder of the pass without advancing past the failing transaction;
// transactions applied earlier in the pass stay applied.
func (r *Runner) RunPass(ctx context.Context, opts PassOptions) (PassResult, error) {
	passID := uuid.NewString()

	watermark, err := r.cursor.GetWatermark(ctx, r.streamKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return PassResult{}, fmt.Errorf("read watermark: %w", err)
	}

	until := ""
	lastSlot := int64(0)
	if watermark != nil {
		lastSlot = watermark.Slot
		if opts.Before == "" {
			until = watermark.Signature
		}
	}

	sigs, err := r.client.ListSignatures(ctx, opts.Before, until, opts.Limit, opts.Commitment)
	if err != nil {
		return PassResult{}, fmt.Errorf("list signatures: %w", err)
	}

	result := PassResult{TransactionsScanned: len(sigs)}
	if len(sigs) == 0 {
		return result, nil
	}

	// The ledger lists most-recent-first; the mirror applies
	// oldest-first so per-entity causal order holds.
	batch := make([]decodedTx, len(sigs))
	for i, info := range sigs {
		batch[len(sigs)-1-i] = decodedTx{info: info}
	}

	r.prefetch(ctx, batch, opts.Commitment)

	for i := range batch {
		tx := &batch[i]

		// A reverted ledger transaction emits no usable state change;
		// skip it but still move the watermark past it.
		if !tx.info.Failed {
			if tx.err != nil {
				return result, fmt.Errorf("transaction %s: %w", tx.info.Signature, tx.err)
			}
			if err := r.applier.Apply(ctx, tx.events); err != nil {
				return result, fmt.Errorf("apply %s: %w", tx.info.Signature, err)
			}
			result.ProcessedEventCount += len(tx.events)
		}

		// The watermark only ever moves forward in ledger order, even
		// when a backfill pass re-derives older state.
		if int64(tx.info.Slot) >= lastSlot {
			if _, err := r.cursor.SetWatermark(ctx, r.streamKey, int64(tx.info.Slot), tx.info.Signature); err != nil {
				return result, fmt.Errorf("advance watermark: %w", err)
			}
			lastSlot = int64(tx.info.Slot)
		}
	}

	slog.Info("[Indexer] Pass complete",
		"pass_id", passID,
		"stream", r.streamKey,
		"transactions_scanned", result.TransactionsScanned,
		"events_applied", result.ProcessedEventCount,
	)

	return result, nil
}

// RunSingle decodes and applies exactly one named transaction, regardless
// of the cursor position. The watermark is never touched: this is the
// operator backfill/repair path.
func (r *Runner) RunSingle(ctx context.Context, signature string, commitment ledger.Commitment) (PassResult, error) {
	tx, err := r.client.FetchTransaction(ctx, signature, commitment)
	if err != nil {
		return PassResult{}, fmt.Errorf("fetch transaction %s: %w", signature, err)
	}

	events, dropped := normalize.Normalize(tx.Signature, r.decoder.Decode(tx))
	if dropped > 0 {
		slog.Warn("[Indexer] Dropped unrecognized records", "signature", signature, "dropped", dropped)
	}

	if err := r.applier.Apply(ctx, events); err != nil {
		return PassResult{}, fmt.Errorf("apply %s: %w", signature, err)
	}

	return PassResult{ProcessedEventCount: len(events), TransactionsScanned: 1}, nil
}

// prefetch fetches and decodes candidate transactions in parallel. Fetch
// and decode of independent transactions share no mutable state; ordering
// is re-imposed by the sequential apply loop.
func (r *Runner) prefetch(ctx context.Context, batch []decodedTx, commitment ledger.Commitment) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)

	for i := range batch {
		tx := &batch[i]
		if tx.info.Failed {
			continue
		}
		g.Go(func() error {
			raw, err := r.client.FetchTransaction(gctx, tx.info.Signature, commitment)
			if err != nil {
				tx.err = err
				return nil
			}
			events, dropped := normalize.Normalize(raw.Signature, r.decoder.Decode(raw))
			if dropped > 0 {
				slog.Warn("[Indexer] Dropped unrecognized records",
					"signature", tx.info.Signature, "dropped", dropped)
			}
			tx.events = events
			return nil
		})
	}

	// Workers record per-transaction errors instead of returning them,
	// so Wait never fails; the apply loop decides where to stop.
	g.Wait()
}
