package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// r2Scheme tags descriptors owned by the object storage backend, e.g.
// r2://invoices/INV-PA-1042-12500.5.pdf
const r2Scheme = "r2://"

// R2Backend stores attachments in an S3-compatible bucket (Cloudflare R2).
type R2Backend struct {
	client *minio.Client
	bucket string
}

// R2Config carries the object storage credentials.
type R2Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// NewR2Backend builds the object storage backend. A nil backend with no
// error is returned when credentials are absent, so callers can always
// register it and let Configured() gate writes.
func NewR2Backend(cfg R2Config) (*R2Backend, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return &R2Backend{}, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: true,
	})
	if err != nil {
		return nil, fmt.Errorf("r2 client: %w", err)
	}
	return &R2Backend{client: client, bucket: cfg.Bucket}, nil
}

func (b *R2Backend) Name() string { return "r2" }

func (b *R2Backend) Configured() bool { return b != nil && b.client != nil }

func (b *R2Backend) Store(ctx context.Context, id string, data []byte) (string, error) {
	key := objectKey(id)
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", fmt.Errorf("r2 put %s: %w", key, err)
	}
	return r2Scheme + key, nil
}

func (b *R2Backend) Matches(descriptor string) bool {
	return strings.HasPrefix(descriptor, r2Scheme)
}

func (b *R2Backend) Open(ctx context.Context, descriptor string) ([]byte, error) {
	if !b.Configured() {
		return nil, ErrNotFound
	}
	key := strings.TrimPrefix(descriptor, r2Scheme)
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("r2 get %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("r2 read %s: %w", key, err)
	}
	return data, nil
}

func objectKey(id string) string {
	return "invoices/" + id + ".pdf"
}
