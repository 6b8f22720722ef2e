package msglog

import "context"

// Store persists Records under a sequence key.
type Store interface {
	// Save appends a record under key (its decimal Seq, zero-padded by
	// the caller so lexical and numeric order agree).
	Save(ctx context.Context, key string, rec Record) error
	// Load retrieves a single record.
	Load(ctx context.Context, key string) (Record, error)
	// List returns every stored key in insertion order.
	List(ctx context.Context) ([]string, error)
	// Reset discards every stored record.
	Reset(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
