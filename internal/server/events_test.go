package server

import (
	"context"
	"net/http"
	"testing"

	"articledesk/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsReachRedisStream(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	pub, err := events.NewRedis(ctx, "redis://"+mr.Addr(), "articles:events", 100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	h := newHarness(t, WithEvents(pub))
	a := h.create(t, "A", "https://img.example.com/a.png")

	rec := h.do(t, http.MethodDelete, "/articles/"+itoa(a.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	entries, err := rdb.XRange(ctx, "articles:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(events.ArticleCreated), entries[0].Values["type"])
	assert.Equal(t, string(events.ArticleDeleted), entries[1].Values["type"])
	assert.Equal(t, itoa(a.ID), entries[1].Values["article_id"])
	assert.Equal(t, "https://img.example.com/a.png", entries[1].Values["image_link"])
}
