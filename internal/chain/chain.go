// Package chain is the Chain Client Adapter: typed access to get_slot and
// get_block against a Solana JSON-RPC node, returning parsed-instruction
// envelopes the classifier can match against directly.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/ljtgentle/solana-scan/internal/errs"
)

// Client wraps a gagliardetto/solana-go RPC client scoped to the
// "confirmed" commitment level this system uses exclusively.
type Client struct {
	rpcClient *rpc.Client
}

// New builds a Client against the given JSON-RPC endpoint.
func New(endpoint string) *Client {
	return &Client{rpcClient: rpc.New(endpoint)}
}

// GetSlot returns the current confirmed chain head.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	slot, err := c.rpcClient.GetSlot(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		if isRateLimitedError(err) {
			return 0, fmt.Errorf("get_slot: %w: %w", errs.ErrRateLimited, err)
		}
		return 0, fmt.Errorf("get_slot: %w: %w", errs.ErrChainUnavailable, err)
	}
	return slot, nil
}

// maxSupportedTxVersion allows legacy and v0 transactions.
var maxSupportedTxVersion = uint64(0)

// GetParsedBlock fetches block at slot with full parsed-instruction
// encoding. A missing block (node has no block for this slot, e.g. a
// skipped leader slot) is reported via ok=false with a nil error — the
// Scanner Engine treats this as a completed skip, not a failure.
func (c *Client) GetParsedBlock(ctx context.Context, slot uint64) (block *ParsedBlock, ok bool, err error) {
	result, rpcErr := c.rpcClient.GetParsedBlockWithOpts(ctx, slot, &rpc.GetBlockOpts{
		Encoding:                       "jsonParsed",
		TransactionDetails:             rpc.TransactionDetailsFull,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxSupportedTxVersion,
	})
	if rpcErr != nil {
		if isSlotSkippedError(rpcErr) {
			return nil, false, nil
		}
		if isRateLimitedError(rpcErr) {
			return nil, false, fmt.Errorf("get_block(%d): %w: %w", slot, errs.ErrRateLimited, rpcErr)
		}
		return nil, false, fmt.Errorf("get_block(%d): %w: %w", slot, errs.ErrChainUnavailable, rpcErr)
	}
	if result == nil {
		return nil, false, nil
	}

	return &ParsedBlock{
		Slot:         slot,
		Transactions: result.Transactions,
	}, true, nil
}

// isSlotSkippedError recognizes the node's "slot was skipped" response,
// which is not a transport failure.
func isSlotSkippedError(err error) bool {
	var rpcErr *rpc.JsonRpcErr
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == -32007 || rpcErr.Code == -32004
	}
	return false
}

// isRateLimitedError recognizes a node's 429 response. The RPC client
// surfaces this as a transport-level error rather than a JsonRpcErr, so
// matching is done against the error text.
func isRateLimitedError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit") || strings.Contains(strings.ToLower(msg), "too many requests")
}

// ParsedBlock is the minimal block shape the classifier consumes. Each
// entry's Transaction and Meta fields are themselves pointers
// (rpc.ParsedTransactionWithMeta wraps *rpc.ParsedTransaction and
// *rpc.ParsedTransactionMeta), so a missing meta or transaction is a nil
// check away rather than a zero-value struct.
type ParsedBlock struct {
	Slot         uint64
	Transactions []rpc.ParsedTransactionWithMeta
}
