// Package publish copies the finished mosaic products to object storage.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/vk/mosaicflow/internal/ctxlog"
)

// Store opens writers for objects. Closing the writer commits the object.
type Store interface {
	NewWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser
}

var contentTypes = map[string]string{
	".fits": "application/fits",
	".png":  "image/png",
	".tbl":  "text/plain",
}

// GCSStore writes objects to Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore connects with application default credentials.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// NewWriter implements Store.
func (s *GCSStore) NewWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Publisher uploads files under one bucket prefix.
type Publisher struct {
	store  Store
	bucket string
	prefix string
}

// New returns a publisher writing to gs://bucket/prefix/.
func New(store Store, bucket, prefix string) *Publisher {
	return &Publisher{store: store, bucket: bucket, prefix: prefix}
}

// Publish uploads each named file from dir and returns the object URLs in
// the same order. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, dir string, names ...string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	urls := make([]string, 0, len(names))
	for _, name := range names {
		object := path.Join(p.prefix, name)
		if err := p.upload(ctx, filepath.Join(dir, name), object); err != nil {
			return urls, err
		}
		url := fmt.Sprintf("gs://%s/%s", p.bucket, object)
		logger.Info("☁️ Published", "url", url)
		urls = append(urls, url)
	}
	return urls, nil
}

func (p *Publisher) upload(ctx context.Context, localPath, object string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer f.Close()

	w := p.store.NewWriter(ctx, p.bucket, object, contentTypes[filepath.Ext(localPath)])
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", object, err)
	}
	return nil
}
