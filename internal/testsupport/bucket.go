package testsupport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/muxinc/video-archivist/internal/storage"
)

// MemoryBucket is an in-memory storage.Bucket. Writes that fail through
// FailPut still leave the bytes read so far behind, mimicking a partially
// written object.
type MemoryBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string]MemoryObject
	deleted []string
	failPut map[string]error
	failAll error
}

// MemoryObject is a stored object.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// NewMemoryBucket returns an empty bucket.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		objects: make(map[string]MemoryObject),
		failPut: make(map[string]error),
	}
}

// FailPut makes writes to path fail with err after consuming the reader.
func (b *MemoryBucket) FailPut(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPut[path] = err
}

// FailAllPuts makes every write fail with err.
func (b *MemoryBucket) FailAllPuts(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAll = err
}

func (b *MemoryBucket) Name() string { return b.name }

func (b *MemoryBucket) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	var buf bytes.Buffer
	_, copyErr := io.Copy(&buf, r)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = MemoryObject{Data: buf.Bytes(), ContentType: contentType}
	if copyErr != nil {
		return copyErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.failAll != nil {
		return b.failAll
	}
	if err, ok := b.failPut[path]; ok {
		return err
	}
	return nil
}

func (b *MemoryBucket) Exists(_ context.Context, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[path]
	return ok, nil
}

func (b *MemoryBucket) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; !ok {
		return storage.ErrNotExist
	}
	delete(b.objects, path)
	b.deleted = append(b.deleted, path)
	return nil
}

// Object returns the object at path.
func (b *MemoryBucket) Object(path string) (MemoryObject, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[path]
	return obj, ok
}

// Paths lists stored object paths in sorted order.
func (b *MemoryBucket) Paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, 0, len(b.objects))
	for p := range b.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Deleted lists paths removed through Delete, in call order.
func (b *MemoryBucket) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

// ErrInjected is a convenience error for FailPut.
var ErrInjected = errors.New("injected failure")
