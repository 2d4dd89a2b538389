package services

import (
	"context"
	"io"
	"time"
)

// BlobStore is the object-store capability the orchestrators depend on.
// *blob.Store satisfies it; tests substitute fakes. Deletion is always by
// enumerated keys here; the adapter's prefix operations stay out of the
// orchestrators because blob keys do not track container renames or moves.
type BlobStore interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration, inline bool) (string, error)
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Copy(ctx context.Context, srcKey, destKey, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	DeleteBatch(ctx context.Context, keys []string) error
}
