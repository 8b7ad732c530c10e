package port

import "context"

// BlobObject is one archived object. Metadata is stored alongside the body
// as user-defined object metadata.
type BlobObject struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// BlobStore is a bucket-scoped object store.
type BlobStore interface {
	Put(ctx context.Context, obj BlobObject) error
	// Get returns domain.ErrNotFound (wrapped) when key does not exist.
	Get(ctx context.Context, key string) (*BlobObject, error)
}
