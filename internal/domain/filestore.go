package domain

import "context"

// FileStore abstracts raw file byte storage for uploaded images.
// The initial implementation stores files on local disk under a configured
// root; this interface allows swapping to S3 or another backend later.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
