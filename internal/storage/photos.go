// Package storage keeps listing photos in a Cloud Storage bucket. Keys are
// scoped under the owning listing's reference so a listing's photos can be
// bulk-deleted by key.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

type PhotoStore struct {
	client *storage.Client
	bucket string
}

// NewPhotoStore opens a client against the bucket. credentialsFile may be
// empty, in which case application default credentials apply.
func NewPhotoStore(ctx context.Context, bucket, credentialsFile string) (*PhotoStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &PhotoStore{client: client, bucket: bucket}, nil
}

func (p *PhotoStore) Close() error {
	return p.client.Close()
}

// Upload stores one photo and returns its key. Keys follow
// listings/<ref>/<timestamp>-<random>.<ext>.
func (p *PhotoStore) Upload(ctx context.Context, listingRef, filename, contentType string, data []byte) (string, error) {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "jpg"
	}
	key := fmt.Sprintf("listings/%s/%d-%s.%s", listingRef, time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	w := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"original-name": filename,
		"listing-ref":   listingRef,
	}
	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	return key, nil
}

// BulkDelete removes every key, stopping at the first failure.
func (p *PhotoStore) BulkDelete(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := p.client.Bucket(p.bucket).Object(key).Delete(ctx); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
