package trustledger

import "context"

// Ledger is the append-only hash-chained audit log of registry mutations.
// MemoryLedger and PostgresLedger implement it.
type Ledger interface {
	// Append adds an entry chained to the current tip. payload is
	// JSON-marshalled and its SHA-256 stored as DataHash.
	Append(ctx context.Context, subject, action, actor string, height uint64, payload any) (*Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Len returns the number of entries, genesis included.
	Len(ctx context.Context) (int, error)

	// Verify walks the chain and returns nil if every link is intact.
	Verify(ctx context.Context) error

	// Root returns the hash of the chain tip.
	Root(ctx context.Context) (string, error)
}
