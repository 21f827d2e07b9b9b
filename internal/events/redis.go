package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis appends events to a Redis stream.
type Redis struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

// NewRedis connects to the server at redisURL (redis://host:port/db).
func NewRedis(ctx context.Context, redisURL, stream string, maxLen int64) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{rdb: rdb, stream: stream, maxLen: maxLen}, nil
}

// Close cleans up the connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	if ev.Type == "" {
		return errors.New("event type is empty")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"type":        string(ev.Type),
			"article_id":  strconv.FormatInt(ev.ArticleID, 10),
			"image_link":  ev.ImageLink,
			"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}
