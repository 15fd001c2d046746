package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used by the watcher.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns (nil, nil) if the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
