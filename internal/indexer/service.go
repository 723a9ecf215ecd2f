package indexer

import (
	"context"
	"errors"

	"github.com/heliograph-labs/heliograph/internal/ledger"
	"github.com/heliograph-labs/heliograph/internal/store"
)

// Service is the on-demand entry point into the pipeline: replay from a
// position, replay one transaction, and cursor observability. It shares
// the worker's gate, so a replay never interleaves with a tick.
type Service struct {
	runner            *Runner
	gate              *Gate
	cursor            store.CursorStore
	streamKey         string
	defaultLimit      int
	defaultCommitment ledger.Commitment
}

func NewService(runner *Runner, gate *Gate, cursor store.CursorStore, streamKey string, defaultLimit int, defaultCommitment ledger.Commitment) *Service {
	return &Service{
		runner:            runner,
		gate:              gate,
		cursor:            cursor,
		streamKey:         streamKey,
		defaultLimit:      defaultLimit,
		defaultCommitment: defaultCommitment,
	}
}

// ReplayFromPosition reruns the pipeline from an explicit starting
// signature (or from the watermark when empty), same as one worker tick.
// Used to fast-forward the mirror after a client-submitted ledger write.
func (s *Service) ReplayFromPosition(ctx context.Context, before string, limit int, commitment string) (PassResult, error) {
	if !s.gate.TryAcquire() {
		return PassResult{}, ErrBusy
	}
	defer s.gate.Release()

	if limit <= 0 {
		limit = s.defaultLimit
	}

	return s.runner.RunPass(ctx, PassOptions{
		Before:     before,
		Limit:      limit,
		Commitment: s.commitmentOrDefault(commitment),
	})
}

// ReplaySingle decodes and applies exactly one named transaction, for
// operator-driven backfill or repair. The watermark is not advanced.
func (s *Service) ReplaySingle(ctx context.Context, signature string, commitment string) (PassResult, error) {
	if !s.gate.TryAcquire() {
		return PassResult{}, ErrBusy
	}
	defer s.gate.Release()

	return s.runner.RunSingle(ctx, signature, s.commitmentOrDefault(commitment))
}

// State returns the stream's watermark for observability. A stream that
// has never advanced reports a zero watermark rather than an error.
func (s *Service) State(ctx context.Context) (*store.Watermark, error) {
	w, err := s.cursor.GetWatermark(ctx, s.streamKey)
	if errors.Is(err, store.ErrNotFound) {
		return &store.Watermark{StreamKey: s.streamKey}, nil
	}
	return w, err
}

func (s *Service) commitmentOrDefault(commitment string) ledger.Commitment {
	if commitment == "" {
		return s.defaultCommitment
	}
	return ledger.ParseCommitment(commitment)
}
