package interfaces

import "context"

// ContentStore provides content-addressed persistence for canonical
// credential bytes. Upload must be safe to call multiple times with the same
// bytes; callers re-upload after partial failures.
type ContentStore interface {
	// Upload persists data and returns the store's content ID for it.
	// The name is a display hint for the store's pin listing.
	Upload(ctx context.Context, data []byte, name string) (ContentID, error)

	// Fetch retrieves the bytes a content ID points at.
	Fetch(ctx context.Context, cid ContentID) ([]byte, error)

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this store.
	LocationURI() string
}

// StoreFactory creates content stores from location URIs.
type StoreFactory interface {
	// StoreFor creates a store from a URI.
	// Supports pinata://, ipfs://, s3://, file://
	StoreFor(locationURI string) (ContentStore, error)

	// CreateMirroredStore creates an aggregated store over several URIs.
	CreateMirroredStore(locationURIs []string) (ContentStore, error)
}
