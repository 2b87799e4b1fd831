package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)
	return s
}

func TestKeys(t *testing.T) {
	t.Parallel()
	at := time.UnixMilli(1700000000123)

	assert.Equal(t, "profile_images/42", ProfileImageKey(42))
	assert.Equal(t, "story_images/1700000000123_banner.png", StoryImageKey(at, "banner.png"))
	assert.Equal(t, "story_images/1700000000123_my_photo.jpg", StoryImageKey(at, "../my photo.jpg"))
	assert.Equal(t, "story_images/1700000000123_upload", StoryImageKey(at, ""))
	assert.Equal(t, "recording-1700000000123.webm", RecordingFileName(at))
	assert.Equal(t, "recordings/7/recording-1700000000123.webm", RecordingKey(7, at))
}

func TestLocalStore_PutOpenDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	url, err := s.Put(ctx, "profile_images/1", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, "/media/profile_images/1", url)

	_, err = s.Put(ctx, "profile_images/1", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	rc, err := s.Open(ctx, "profile_images/1")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "second", string(b))

	require.NoError(t, s.Delete(ctx, "profile_images/1"))
	assert.ErrorIs(t, s.Delete(ctx, "profile_images/1"), ErrObjectNotFound)
	_, err = s.Open(ctx, "profile_images/1")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, DeleteIgnoringMissing(ctx, s, "profile_images/1"))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "/abs", "a//b"} {
		_, err := s.Put(ctx, key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalStore_KeyFromURL(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	key, ok := s.KeyFromURL("/media/story_images/1_a.png")
	assert.True(t, ok)
	assert.Equal(t, "story_images/1_a.png", key)

	key, ok = s.KeyFromURL("/media/story_images/1_a.png?v=2")
	assert.True(t, ok)
	assert.Equal(t, "story_images/1_a.png", key)

	_, ok = s.KeyFromURL("https://picsum.photos/seed/1/400/300")
	assert.False(t, ok)
	_, ok = s.KeyFromURL("/media/../secret")
	assert.False(t, ok)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, "k", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
