package transfer

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/muxinc/video-archivist/internal/storage"
)

const cleanupTimeout = 30 * time.Second

// Uploader writes objects to a bucket and returns their public URLs.
type Uploader struct {
	bucket  storage.Bucket
	baseURL string
}

// NewUploader returns an Uploader whose object URLs are
// baseURL/bucketName/path.
func NewUploader(bucket storage.Bucket, baseURL string) *Uploader {
	return &Uploader{bucket: bucket, baseURL: baseURL}
}

// URL returns the public URL of path.
func (u *Uploader) URL(path string) string {
	return storage.PublicURL(u.baseURL, u.bucket.Name(), path)
}

// UploadStream copies r to path. If the write fails for any reason the
// object at path is removed before the error is returned.
func (u *Uploader) UploadStream(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	if contentType == "" {
		contentType = DefaultStreamContentType
	}
	if err := u.bucket.Put(ctx, path, r, contentType); err != nil {
		return "", u.fail(ctx, path, err)
	}
	return u.URL(path), nil
}

// UploadText writes text to path with the given content type.
func (u *Uploader) UploadText(ctx context.Context, path, text, contentType string) (string, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	if err := u.bucket.Put(ctx, path, strings.NewReader(text), contentType); err != nil {
		return "", u.fail(ctx, path, err)
	}
	return u.URL(path), nil
}

// fail removes any partial object. Cleanup runs on a context detached from
// the caller's so a cancelled request still gets its object removed.
func (u *Uploader) fail(ctx context.Context, path string, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	uerr := &UploadError{Path: path, Err: cause}
	exists, err := u.bucket.Exists(ctx, path)
	if err != nil {
		uerr.Cleanup = err
		return uerr
	}
	if !exists {
		return uerr
	}
	if err := u.bucket.Delete(ctx, path); err != nil && !errors.Is(err, storage.ErrNotExist) {
		uerr.Cleanup = err
	}
	return uerr
}

// Transfer fetches src and streams it to path, returning the public URL.
func (u *Uploader) Transfer(ctx context.Context, client *Client, src, path string) (string, error) {
	stream, err := client.FetchStream(ctx, src)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	return u.UploadStream(ctx, path, stream.Body, stream.ContentType)
}
