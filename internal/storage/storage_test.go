package storage

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name       string
	configured bool
	storeErr   error
	stored     map[string][]byte
	prefix     string
}

func newStubBackend(name, prefix string, configured bool) *stubBackend {
	return &stubBackend{name: name, prefix: prefix, configured: configured, stored: make(map[string][]byte)}
}

func (b *stubBackend) Name() string     { return b.name }
func (b *stubBackend) Configured() bool { return b.configured }

func (b *stubBackend) Store(_ context.Context, id string, data []byte) (string, error) {
	if b.storeErr != nil {
		return "", b.storeErr
	}
	descriptor := b.prefix + id + ".pdf"
	b.stored[descriptor] = data
	return descriptor, nil
}

func (b *stubBackend) Matches(descriptor string) bool {
	return len(descriptor) > len(b.prefix) && descriptor[:len(b.prefix)] == b.prefix
}

func (b *stubBackend) Open(_ context.Context, descriptor string) ([]byte, error) {
	data, ok := b.stored[descriptor]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestFallbackStorePrefersFirstBackend(t *testing.T) {
	primary := newStubBackend("primary", "r2://", true)
	secondary := newStubBackend("secondary", "/documents/", true)
	store := NewFallbackStore(discardLogger(), primary, secondary)

	res := store.Save(context.Background(), "INV-1", []byte("pdf"))
	require.True(t, res.Stored)
	require.Equal(t, "r2://INV-1.pdf", res.Path)
	require.Empty(t, secondary.stored)
}

func TestFallbackStoreFallsThroughOnFailure(t *testing.T) {
	primary := newStubBackend("primary", "r2://", true)
	primary.storeErr = errors.New("bucket unreachable")
	secondary := newStubBackend("secondary", "/documents/", true)
	store := NewFallbackStore(discardLogger(), primary, secondary)

	res := store.Save(context.Background(), "INV-1", []byte("pdf"))
	require.True(t, res.Stored)
	require.Equal(t, "/documents/INV-1.pdf", res.Path)
}

func TestFallbackStoreSkipsUnconfigured(t *testing.T) {
	primary := newStubBackend("primary", "r2://", false)
	secondary := newStubBackend("secondary", "/documents/", true)
	store := NewFallbackStore(discardLogger(), primary, secondary)

	res := store.Save(context.Background(), "INV-1", []byte("pdf"))
	require.Equal(t, "/documents/INV-1.pdf", res.Path)
	require.Empty(t, primary.stored)
}

func TestFallbackStoreDegradesWhenNothingConfigured(t *testing.T) {
	store := NewFallbackStore(discardLogger(), newStubBackend("primary", "r2://", false))

	res := store.Save(context.Background(), "INV-1", []byte("pdf"))
	require.False(t, res.Stored)
	require.Empty(t, res.Path)
}

func TestFallbackStoreOpenDispatchesByScheme(t *testing.T) {
	primary := newStubBackend("primary", "r2://", true)
	secondary := newStubBackend("secondary", "/documents/", true)
	secondary.stored["/documents/INV-2.pdf"] = []byte("local bytes")
	store := NewFallbackStore(discardLogger(), primary, secondary)

	data, err := store.Open(context.Background(), "/documents/INV-2.pdf")
	require.NoError(t, err)
	require.Equal(t, []byte("local bytes"), data)

	_, err = store.Open(context.Background(), "r2://missing.pdf")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Open(context.Background(), "gs://unknown-scheme.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backend := NewFilesystemBackend(dir)
	require.True(t, backend.Configured())

	descriptor, err := backend.Store(context.Background(), "INV-PA-1042-12500.5", []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "/documents/INV-PA-1042-12500.5.pdf", descriptor)
	require.True(t, backend.Matches(descriptor))

	data, err := backend.Open(context.Background(), descriptor)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4"), data)
}

func TestFilesystemBackendOpenMissing(t *testing.T) {
	backend := NewFilesystemBackend(t.TempDir())
	_, err := backend.Open(context.Background(), "/documents/nope.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemBackendUnconfigured(t *testing.T) {
	backend := NewFilesystemBackend("")
	require.False(t, backend.Configured())
	_, err := backend.Open(context.Background(), "/documents/nope.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemBackendOpenGuardsTraversal(t *testing.T) {
	dir := t.TempDir()
	backend := NewFilesystemBackend(dir)
	_, err := backend.Open(context.Background(), "/documents/../../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestR2BackendUnconfiguredWithoutCredentials(t *testing.T) {
	backend, err := NewR2Backend(R2Config{})
	require.NoError(t, err)
	require.False(t, backend.Configured())
}
