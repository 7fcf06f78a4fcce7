package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBucket stores objects in Google Cloud Storage.
type GCSBucket struct {
	client *gcs.Client
	handle *gcs.BucketHandle
	name   string
}

// NewGCSBucket opens bucket using application default credentials, or the
// service account key in credentialsFile when set.
func NewGCSBucket(ctx context.Context, bucket, credentialsFile string) (*GCSBucket, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSBucket{client: client, handle: client.Bucket(bucket), name: bucket}, nil
}

func (b *GCSBucket) Name() string { return b.name }

// Put streams r into path. A read failure cancels the upload so no partial
// object is committed.
func (b *GCSBucket) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.handle.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.PredefinedACL = "publicRead"
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", b.name, path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", b.name, path, err)
	}
	return nil
}

func (b *GCSBucket) Exists(ctx context.Context, path string) (bool, error) {
	_, err := b.handle.Object(path).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gcs.ErrObjectNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat gs://%s/%s: %w", b.name, path, err)
	}
}

func (b *GCSBucket) Delete(ctx context.Context, path string) error {
	err := b.handle.Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotExist
	}
	if err != nil {
		return fmt.Errorf("delete gs://%s/%s: %w", b.name, path, err)
	}
	return nil
}

// Check verifies the bucket is reachable with the configured credentials.
func (b *GCSBucket) Check(ctx context.Context) error {
	if _, err := b.handle.Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %s: %w", b.name, err)
	}
	return nil
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}
