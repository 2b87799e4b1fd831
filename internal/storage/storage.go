// Package storage keeps uploaded objects (profile images, story banners,
// recordings) behind a small key/value interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a key has no object behind it.
var ErrObjectNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for keys that are empty or escape the store.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Object key prefixes.
const (
	ProfileImagesPrefix = "profile_images"
	StoryImagesPrefix   = "story_images"
	RecordingsPrefix    = "recordings"
)

// ObjectStore is the blob storage port used by services.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	KeyFromURL(url string) (string, bool)
}

// ProfileImageKey is the single slot for a user's avatar; uploads overwrite it.
func ProfileImageKey(userID uint) string {
	return fmt.Sprintf("%s/%d", ProfileImagesPrefix, userID)
}

// StoryImageKey names a story banner uploaded at t.
func StoryImageKey(t time.Time, filename string) string {
	return fmt.Sprintf("%s/%d_%s", StoryImagesPrefix, t.UnixMilli(), sanitizeFilename(filename))
}

// RecordingFileName is the name given to a finalized recording.
func RecordingFileName(t time.Time) string {
	return fmt.Sprintf("recording-%d.webm", t.UnixMilli())
}

// RecordingKey names the audio object of a finalized recording.
func RecordingKey(userID uint, t time.Time) string {
	return fmt.Sprintf("%s/%d/%s", RecordingsPrefix, userID, RecordingFileName(t))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

// LocalStore writes objects under a directory on disk and serves them under baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), nil
}

// Put stores the contents of r under key, replacing any existing object, and
// returns the object's public URL.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("commit object %s: %w", key, err)
	}
	return s.URL(key), nil
}

// Open returns a reader for the object at key.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes the object at key. A missing object yields ErrObjectNotFound.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL is the public address of key.
func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + key
}

// KeyFromURL maps a URL produced by this store back to its key. URLs that
// point elsewhere (placeholder images, other hosts) report false.
func (s *LocalStore) KeyFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if _, err := s.resolve(key); err != nil {
		return "", false
	}
	return key, true
}

// DeleteIgnoringMissing deletes key and treats an already-absent object as success.
func DeleteIgnoringMissing(ctx context.Context, store ObjectStore, key string) error {
	if err := store.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return err
	}
	return nil
}
