package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-backend/internal/projects"
	"research-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) (*Service, *local.Store) {
	t.Helper()
	store := local.New(t.TempDir())
	svc := NewService(store)
	svc.Now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return svc, store
}

func TestUploadExtractsText(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "user-1", "notes.md", strings.NewReader("# Findings\nThe effect persists."))
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "notes.md", f.Name)
	assert.Equal(t, int64(31), f.Size)
	assert.Equal(t, "text/markdown; charset=utf-8", f.Type)
	assert.Equal(t, int64(1_700_000_000_000), f.UploadDate)
	require.NotEmpty(t, f.StorageKey)
	require.NotEmpty(t, f.ExtractedTextKey)

	body, err := store.Open(ctx, f.ExtractedTextKey)
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "The effect persists.")

	text, err := svc.Excerpt(ctx, f)
	require.NoError(t, err)
	assert.Contains(t, text, "Findings")
}

func TestUploadKeepsUnsupportedFiles(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := svc.Upload(context.Background(), "user-1", "figure.png", strings.NewReader("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	assert.NotEmpty(t, f.StorageKey)
	assert.Empty(t, f.ExtractedTextKey)

	_, err = svc.Excerpt(context.Background(), f)
	assert.ErrorIs(t, err, ErrNoExtractedText)
}

func TestUploadRequiresName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Upload(context.Background(), "user-1", "  ", strings.NewReader("x"))
	assert.ErrorIs(t, err, projects.ErrInvalidInput)
}

func TestRemoveDeletesBothObjects(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "user-1", "a.txt", strings.NewReader("alpha"))
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, f))

	for _, key := range []string{f.StorageKey, f.ExtractedTextKey} {
		_, err := store.Open(ctx, key)
		assert.Error(t, err, key)
	}

	// Removing twice is harmless.
	assert.NoError(t, svc.Remove(ctx, f))
}

type failingStore struct{ *local.Store }

func (failingStore) Delete(ctx context.Context, key string) error {
	return errors.New("permission denied")
}

func TestRemoveReportsFailures(t *testing.T) {
	svc, store := newTestService(t)
	svc.Store = failingStore{Store: store}

	err := svc.Remove(context.Background(), projects.ProjectFile{StorageKey: "k", ExtractedTextKey: "k.extracted.txt"})
	assert.ErrorContains(t, err, "permission denied")
}
