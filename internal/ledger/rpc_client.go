package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	coreerrors "github.com/heliograph-labs/heliograph/internal/core/errors"
)

// RPCClient implements Client over a Solana JSON-RPC endpoint.
type RPCClient struct {
	rpc            *rpc.Client
	programID      solana.PublicKey
	requestTimeout time.Duration
}

// NewRPCClient creates a ledger client for the given endpoint and program.
// requestTimeout bounds every individual RPC call.
func NewRPCClient(endpoint, programID string, requestTimeout time.Duration) (*RPCClient, error) {
	pk, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid program id %q: %v", coreerrors.ErrConfiguration, programID, err)
	}
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	return &RPCClient{
		rpc:            rpc.New(endpoint),
		programID:      pk,
		requestTimeout: requestTimeout,
	}, nil
}

// ProgramID returns the mirrored program's address.
func (c *RPCClient) ProgramID() solana.PublicKey {
	return c.programID
}

func (c *RPCClient) ListSignatures(ctx context.Context, before, until string, limit int, commitment Commitment) ([]SignatureInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpcCommitment(commitment),
	}
	if before != "" {
		sig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, fmt.Errorf("invalid before signature %q: %w", before, err)
		}
		opts.Before = sig
	}
	if until != "" {
		sig, err := solana.SignatureFromBase58(until)
		if err != nil {
			return nil, fmt.Errorf("invalid until signature %q: %w", until, err)
		}
		opts.Until = sig
	}

	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, c.programID, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: getSignaturesForAddress: %v", coreerrors.ErrTransientFetch, err)
	}

	out := make([]SignatureInfo, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Failed:    s.Err != nil,
		})
	}
	return out, nil
}

func (c *RPCClient) FetchTransaction(ctx context.Context, signature string, commitment Commitment) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	maxVersion := uint64(0)
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpcCommitment(commitment),
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getTransaction %s: %v", coreerrors.ErrTransientFetch, signature, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: getTransaction %s: not found", coreerrors.ErrTransientFetch, signature)
	}

	tx := &Transaction{
		Signature: signature,
		Slot:      res.Slot,
	}

	if res.Meta != nil {
		tx.LogMessages = res.Meta.LogMessages
	}

	if res.Transaction != nil {
		decoded, err := res.Transaction.GetTransaction()
		if err != nil {
			return nil, fmt.Errorf("%w: decode transaction %s: %v", coreerrors.ErrTransientFetch, signature, err)
		}
		if decoded != nil {
			tx.AccountKeys = decoded.Message.AccountKeys
			tx.Instructions = decoded.Message.Instructions
		}
	}

	// Address-table lookups resolve after the static keys, in the same
	// order instruction account indexes reference them.
	if res.Meta != nil {
		tx.AccountKeys = append(tx.AccountKeys, res.Meta.LoadedAddresses.Writable...)
		tx.AccountKeys = append(tx.AccountKeys, res.Meta.LoadedAddresses.ReadOnly...)
	}

	return tx, nil
}

func rpcCommitment(c Commitment) rpc.CommitmentType {
	switch c {
	case CommitmentProcessed:
		return rpc.CommitmentProcessed
	case CommitmentFinalized:
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}
