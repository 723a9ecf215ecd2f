// Package ledger talks to the chain. It is the only package that speaks
// RPC; everything downstream sees the Client interface and plain types.
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Commitment selects how finalized the ledger view must be. Higher
// commitment trades latency for certainty against reorganization.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// ParseCommitment maps a config string to a Commitment, defaulting to
// confirmed on anything unrecognized or empty.
func ParseCommitment(s string) Commitment {
	switch Commitment(s) {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return Commitment(s)
	default:
		return CommitmentConfirmed
	}
}

// SignatureInfo is one candidate transaction affecting the program.
// Failed means the underlying ledger transaction itself reverted; it emits
// no usable state change and must be skipped by the apply path.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	Failed    bool
}

// Transaction is the raw fetched output of one ledger transaction: the
// runtime log records plus the instruction invocations and account list
// the decoder's instruction-argument tier needs.
type Transaction struct {
	Signature    string
	Slot         uint64
	LogMessages  []string
	AccountKeys  []solana.PublicKey
	Instructions []solana.CompiledInstruction
}

// Client is the ledger collaborator consumed by the sync engine.
type Client interface {
	// ListSignatures returns up to limit candidate transaction signatures
	// for the mirrored program, most recent first. before starts strictly
	// before a known signature (manual backfill); until stops at a known
	// signature, which is how a tick fetches only what is newer than the
	// watermark. Either may be empty.
	ListSignatures(ctx context.Context, before, until string, limit int, commitment Commitment) ([]SignatureInfo, error)

	// FetchTransaction retrieves one transaction's raw output.
	FetchTransaction(ctx context.Context, signature string, commitment Commitment) (*Transaction, error)
}
