// Package storage provides the object store that archived media is written
// to. Objects are addressed by a slash-separated path relative to the bucket
// root and are always publicly readable once written.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotExist reports a missing object.
var ErrNotExist = errors.New("object does not exist")

// Bucket is the object store collaborator used by the transfer layer.
type Bucket interface {
	// Name identifies the bucket; it forms part of public object URLs.
	Name() string
	// Put writes the full contents of r to path with public read access.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// Backend names a Bucket implementation.
type Backend string

const (
	BackendGCS   Backend = "gcs"
	BackendLocal Backend = "local"
)

// Options select and configure a backend.
type Options struct {
	Backend         Backend
	Bucket          string
	CredentialsFile string
	LocalDir        string
}

// Open returns the bucket described by opts. The caller must Close the
// returned closer when done.
func Open(ctx context.Context, opts Options) (Bucket, io.Closer, error) {
	switch opts.Backend {
	case BackendGCS:
		b, err := NewGCSBucket(ctx, opts.Bucket, opts.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case BackendLocal, "":
		b, err := NewLocalBucket(opts.LocalDir, opts.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return b, io.NopCloser(nil), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", opts.Backend)
	}
}

// PublicURL joins a storage URL base, bucket name, and object path.
func PublicURL(base, bucket, path string) string {
	base = strings.TrimRight(base, "/")
	path = strings.TrimLeft(path, "/")
	if bucket == "" {
		return base + "/" + path
	}
	return base + "/" + bucket + "/" + path
}

// JoinPath joins a destination prefix and a file name with a single slash.
func JoinPath(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
