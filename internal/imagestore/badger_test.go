package imagestore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBaseURL = "http://localhost:8000/images"

func newTestBadger(t *testing.T) *Badger {
	t.Helper()
	b, err := OpenBadger("", testBaseURL+"/", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBadger_Upload_Get_Delete(t *testing.T) {
	b := newTestBadger(t)
	ctx := context.Background()

	url, err := b.Upload(ctx, []byte("\x89PNG fake bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, testBaseURL+"/"), "url %q should live under the base url", url)

	id := strings.TrimPrefix(url, testBaseURL+"/")
	data, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG fake bytes"), data)

	require.NoError(t, b.Delete(ctx, url))

	_, err = b.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, url), ErrNotFound)
}

func TestBadger_UploadRejectsEmptyImage(t *testing.T) {
	b := newTestBadger(t)

	_, err := b.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestBadger_DeleteRejectsForeignURL(t *testing.T) {
	b := newTestBadger(t)
	ctx := context.Background()

	assert.ErrorIs(t, b.Delete(ctx, "https://res.cloudinary.com/demo/image/upload/v1/a.png"), ErrForeignURL)
	assert.ErrorIs(t, b.Delete(ctx, testBaseURL+"/not-a-uuid"), ErrForeignURL)
}

func TestBadger_GetUnknownID(t *testing.T) {
	b := newTestBadger(t)

	_, err := b.Get(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadger_CloseStopsGarbageCollector(t *testing.T) {
	b, err := OpenBadger(t.TempDir(), testBaseURL, zap.NewNop())
	require.NoError(t, err)

	url, err := b.Upload(context.Background(), []byte("bytes"))
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	assert.NoError(t, b.Close())
}
