// Package memory provides an in-memory object-store backend used in tests
// and in the default zero-configuration setup.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Backend stores objects in process memory and issues fake signed URLs.
// Every signing call produces a distinct URL so tests can observe whether a
// link came from the cache or from a fresh issuance.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte

	signCount atomic.Int64
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{objects: make(map[string][]byte)}
}

// SignGet returns a synthetic read URL carrying a serial number and expiry.
func (b *Backend) SignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	n := b.signCount.Add(1)
	return fmt.Sprintf("memory://get/%s?sig=%d&expires=%d", key, n, int64(expires.Seconds())), nil
}

// SignPut returns a synthetic write URL.
func (b *Backend) SignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	n := b.signCount.Add(1)
	return fmt.Sprintf("memory://put/%s?sig=%d&expires=%d", key, n, int64(expires.Seconds())), nil
}

// SignCalls reports how many signing operations have happened.
func (b *Backend) SignCalls() int64 {
	return b.signCount.Load()
}

// Upload stores content under the key.
func (b *Backend) Upload(ctx context.Context, key, mimeType string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

// Download reads content back.
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
