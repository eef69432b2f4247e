package driven

import "context"

// BlobStore is a persistent key-value store for opaque byte blobs.
// Implementations must make Put atomic: a reader never observes a
// partially written value.
type BlobStore interface {
	// Put stores data under key, replacing any existing value atomically.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the value for key.
	// Returns domain.ErrBlobNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// WatchableBlobStore is an optional extension for stores that can report
// out-of-band changes to their contents (e.g. a file edited on disk).
type WatchableBlobStore interface {
	BlobStore

	// Watch emits the key of each externally changed blob until ctx is
	// cancelled. The returned channel is closed on cancellation.
	Watch(ctx context.Context) (<-chan string, error)
}
