// Package storage abstracts the object store holding uploaded images.
package storage

import (
	"context"
	"io"
)

// ObjectStore is the interface services depend on; the R2 client implements
// it in production and tests substitute an in-memory fake.
type ObjectStore interface {
	// Upload stores the object under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	// Delete removes the object. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a public URL produced by Upload back to its key,
	// returning false for URLs this store did not produce.
	KeyFromURL(url string) (string, bool)
}
