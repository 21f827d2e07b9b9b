package store

import (
	"context"
	"errors"
	"testing"

	"articledesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// newTestStore opens an in-memory SQLite store with the schema applied.
func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()

	st, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Migrate(ctx))
	return st
}

func input(title string, image *string) model.ArticleInput {
	return model.ArticleInput{
		AdminID:   ptr(int64(1)),
		Title:     ptr(title),
		Summary:   ptr("S"),
		Link:      ptr("L"),
		ImageLink: image,
	}
}

func TestSQLStore_Create_And_Get(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.Create(ctx, input("A", nil))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "A", created.Title)
	assert.Nil(t, created.ImageLink)

	second, err := st.Create(ctx, input("B", ptr("http://img/b.png")))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID, "identifiers are unique")

	got, err := st.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	require.NotNil(t, got.ImageLink)
	assert.Equal(t, "http://img/b.png", *got.ImageLink)
}

func TestSQLStore_Create_RejectsIncompleteInput(t *testing.T) {
	st := newTestStore(t)

	in := input("A", nil)
	in.Link = nil
	_, err := st.Create(context.Background(), in)

	var fe *model.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "link", fe.Field)

	articles, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestSQLStore_List(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	empty, err := st.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty, "an empty table lists as an empty slice")
	assert.Len(t, empty, 0)

	for _, title := range []string{"one", "two", "three"} {
		_, err := st.Create(ctx, input(title, nil))
		require.NoError(t, err)
	}

	articles, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, "one", articles[0].Title)
	assert.Equal(t, "three", articles[2].Title)
}

func TestSQLStore_Replace(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.Create(ctx, input("A", ptr("http://img/old.png")))
	require.NoError(t, err)

	updated, previous, err := st.Replace(ctx, created.ID, input("B", ptr("http://img/new.png")))
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "B", updated.Title)
	assert.Equal(t, "http://img/new.png", updated.Image())
	assert.Equal(t, "http://img/old.png", previous.Image(), "previous row is reported as read before the write")

	got, err := st.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestSQLStore_Replace_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, _, err := st.Replace(context.Background(), 42, input("B", nil))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Delete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.Create(ctx, input("A", ptr("http://img/a.png")))
	require.NoError(t, err)

	removed, err := st.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://img/a.png", removed.Image())

	_, err = st.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_MigrateIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDialect_Rebind(t *testing.T) {
	q := `UPDATE articles SET title = ? WHERE article_id = ?`

	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, `UPDATE articles SET title = $1 WHERE article_id = $2`, Postgres.rebind(q))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name)

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name)
}
