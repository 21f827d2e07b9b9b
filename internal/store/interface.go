package store

import (
	"context"
	"errors"

	"articledesk/internal/model"
)

var (
	ErrNotFound = errors.New("article not found")
)

// Store persists articles. Every write runs in its own transaction.
type Store interface {
	Create(ctx context.Context, in model.ArticleInput) (*model.Article, error)
	List(ctx context.Context) ([]model.Article, error)
	// Replace overwrites every field of the article and also returns the row
	// as it was before the write.
	Replace(ctx context.Context, id int64, in model.ArticleInput) (updated, previous *model.Article, err error)
	// Delete removes the article and returns the row that was removed.
	Delete(ctx context.Context, id int64) (*model.Article, error)
	Close() error
}
