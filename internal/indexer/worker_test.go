package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heliograph-labs/heliograph/internal/ledger"
	"github.com/heliograph-labs/heliograph/internal/store"
)

func TestWorker_FirstTickRunsImmediately(t *testing.T) {
	client := newFakeClient()
	dec := newFakeDecoder()
	mem := store.NewMemory()

	client.addTx("sig-a", 10, false)
	dec.post("sig-a", "alice", 1)

	runner := newTestRunner(client, dec, mem)
	worker := NewWorker(runner, &Gate{}, time.Hour, 100, ledger.CommitmentConfirmed)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		require.NoError(t, worker.Start(ctx))
		close(done)
	}()

	// The interval is an hour, so any progress must come from the
	// immediate catch-up tick.
	require.Eventually(t, func() bool {
		_, err := mem.GetWatermark(context.Background(), "test-stream")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

func TestWorker_TickSkippedWhileGateHeld(t *testing.T) {
	client := newFakeClient()
	dec := newFakeDecoder()
	mem := store.NewMemory()

	client.addTx("sig-a", 10, false)
	dec.post("sig-a", "alice", 1)

	gate := &Gate{}
	worker := NewWorker(newTestRunner(client, dec, mem), gate, time.Hour, 100, ledger.CommitmentConfirmed)

	require.True(t, gate.TryAcquire())
	worker.tick(context.Background())

	// The held gate swallowed the tick entirely.
	_, err := mem.GetWatermark(context.Background(), "test-stream")
	require.ErrorIs(t, err, store.ErrNotFound)

	gate.Release()
	worker.tick(context.Background())

	w, err := mem.GetWatermark(context.Background(), "test-stream")
	require.NoError(t, err)
	require.Equal(t, "sig-a", w.Signature)
}

func TestGate_SingleWriter(t *testing.T) {
	gate := &Gate{}
	require.True(t, gate.TryAcquire())
	require.False(t, gate.TryAcquire())
	gate.Release()
	require.True(t, gate.TryAcquire())
	gate.Release()
}
