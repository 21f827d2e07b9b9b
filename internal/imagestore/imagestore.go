// Package imagestore uploads and deletes article images on an
// URL-addressable image host.
package imagestore

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("image not found")
	ErrForeignURL = errors.New("image url does not belong to this store")
	ErrEmptyImage = errors.New("image is empty")
)

// Store is an image host keyed by the URL it hands out.
type Store interface {
	Upload(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}
