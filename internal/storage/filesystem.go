package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// documentsPrefix tags descriptors owned by the filesystem backend, e.g.
// /documents/INV-PA-1042-12500.5.pdf
const documentsPrefix = "/documents/"

// FilesystemBackend stores attachments in a local documents directory.
// It is the fallback for deployments without object storage and is skipped
// entirely on ephemeral hosts where no directory is configured.
type FilesystemBackend struct {
	dir string
}

// NewFilesystemBackend builds the local disk backend. An empty dir yields
// an unconfigured backend.
func NewFilesystemBackend(dir string) *FilesystemBackend {
	return &FilesystemBackend{dir: dir}
}

func (b *FilesystemBackend) Name() string { return "filesystem" }

func (b *FilesystemBackend) Configured() bool { return b != nil && b.dir != "" }

func (b *FilesystemBackend) Store(ctx context.Context, id string, data []byte) (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("documents dir: %w", err)
	}
	name := id + ".pdf"
	if err := os.WriteFile(filepath.Join(b.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return documentsPrefix + name, nil
}

func (b *FilesystemBackend) Matches(descriptor string) bool {
	return strings.HasPrefix(descriptor, documentsPrefix)
}

func (b *FilesystemBackend) Open(ctx context.Context, descriptor string) ([]byte, error) {
	if !b.Configured() {
		return nil, ErrNotFound
	}
	// path.Base guards against traversal in stored descriptors.
	name := path.Base(strings.TrimPrefix(descriptor, documentsPrefix))
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
