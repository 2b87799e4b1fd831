// Package testutil holds in-memory stand-ins shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/arvi1709/AI-library/internal/storage"
)

// MemoryStore is an in-memory storage.ObjectStore.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailDelete makes Delete return this error for every key it names.
	FailDelete map[string]error
}

var _ storage.ObjectStore = (*MemoryStore)(nil)

const memoryBaseURL = "mem://objects"

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), FailDelete: make(map[string]error)}
}

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader) (string, error) {
	if key == "" {
		return "", storage.ErrInvalidKey
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[key] = b
	s.mu.Unlock()
	return s.URL(key), nil
}

func (s *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailDelete[key]; err != nil {
		return err
	}
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) URL(key string) string {
	return memoryBaseURL + "/" + key
}

func (s *MemoryStore) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, memoryBaseURL+"/") {
		return "", false
	}
	key := strings.TrimPrefix(url, memoryBaseURL+"/")
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}

// Has reports whether key is stored.
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Keys lists the stored keys in order.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ErrStoreDown is a convenience failure for FailDelete.
var ErrStoreDown = errors.New("object store unavailable")

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
