// Package events announces article lifecycle changes to other services.
package events

import (
	"context"
	"time"
)

type Type string

const (
	ArticleCreated Type = "article.created"
	ArticleUpdated Type = "article.updated"
	ArticleDeleted Type = "article.deleted"
)

// Event describes a committed change to one article.
type Event struct {
	Type       Type
	ArticleID  int64
	ImageLink  string
	OccurredAt time.Time
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
