// Package storage persists raw PDF attachments and serves them back by
// descriptor. Writes degrade gracefully: object storage first, local disk
// second, and when neither is available the invoice record is kept without
// a retrievable PDF. That last outcome is a valid one, not a failure.
package storage

import (
	"context"
	"errors"
	"log"
)

// ErrNotFound is returned by read paths when no backend holds the file.
var ErrNotFound = errors.New("storage: file not found")

// Backend is one place attachment bytes can live.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Configured reports whether the backend can accept writes.
	Configured() bool

	// Store persists the PDF for the given invoice id and returns its
	// scheme-tagged descriptor.
	Store(ctx context.Context, id string, data []byte) (string, error)

	// Matches reports whether a descriptor belongs to this backend.
	Matches(descriptor string) bool

	// Open returns the bytes behind a descriptor, or ErrNotFound.
	Open(ctx context.Context, descriptor string) ([]byte, error)
}

// Result is the tagged outcome of a store attempt. Stored == false means
// every backend was unavailable, an accepted degraded mode.
type Result struct {
	Stored bool
	Path   string
}

// FallbackStore tries an ordered list of backends and keeps the first
// success. Upload failures are logged and fall through; they never abort
// the caller's run.
type FallbackStore struct {
	backends []Backend
	logger   *log.Logger
}

// NewFallbackStore builds a store over the given backends in priority order.
func NewFallbackStore(logger *log.Logger, backends ...Backend) *FallbackStore {
	if logger == nil {
		logger = log.Default()
	}
	return &FallbackStore{backends: backends, logger: logger}
}

// Save persists the attachment to the first backend that accepts it.
func (s *FallbackStore) Save(ctx context.Context, id string, data []byte) Result {
	for _, backend := range s.backends {
		if !backend.Configured() {
			continue
		}
		path, err := backend.Store(ctx, id, data)
		if err != nil {
			s.logger.Printf("[STORAGE] %s store %s failed: %v", backend.Name(), id, err)
			continue
		}
		return Result{Stored: true, Path: path}
	}
	return Result{}
}

// Open dispatches a descriptor to the backend that owns its scheme.
func (s *FallbackStore) Open(ctx context.Context, descriptor string) ([]byte, error) {
	for _, backend := range s.backends {
		if backend.Matches(descriptor) {
			return backend.Open(ctx, descriptor)
		}
	}
	return nil, ErrNotFound
}
