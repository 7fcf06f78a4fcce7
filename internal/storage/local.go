package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/muxinc/video-archivist/internal/fileutil"
)

// LocalBucket stores objects as files under a root directory. It is meant
// for development and for serving archives from a static file host.
type LocalBucket struct {
	root string
	name string
}

// NewLocalBucket creates the bucket directory root/name.
func NewLocalBucket(root, name string) (*LocalBucket, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local storage directory is required")
	}
	dir := root
	if name != "" {
		dir = filepath.Join(root, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local bucket: %w", err)
	}
	return &LocalBucket{root: dir, name: name}, nil
}

func (b *LocalBucket) Name() string { return b.name }

// Root returns the directory objects are written under.
func (b *LocalBucket) Root() string { return b.root }

func (b *LocalBucket) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(b.root, clean), nil
}

func (b *LocalBucket) Put(ctx context.Context, path string, r io.Reader, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := b.resolve(path)
	if err != nil {
		return err
	}
	if _, err := fileutil.WriteStream(dst, r, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (b *LocalBucket) Exists(_ context.Context, path string) (bool, error) {
	dst, err := b.resolve(path)
	if err != nil {
		return false, err
	}
	return fileutil.Exists(dst)
}

func (b *LocalBucket) Delete(_ context.Context, path string) error {
	dst, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	return nil
}

// Check verifies the bucket directory is still present.
func (b *LocalBucket) Check(context.Context) error {
	info, err := os.Stat(b.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.root)
	}
	return nil
}
