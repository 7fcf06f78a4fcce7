package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// MediaFile is a canned upstream response.
type MediaFile struct {
	Body        string
	ContentType string
	Status      int
	// Delay holds the response back before headers are written.
	Delay time.Duration
}

// MediaServer serves a fixed set of paths and counts requests per path.
type MediaServer struct {
	*httptest.Server

	mu    sync.Mutex
	files map[string]MediaFile
	hits  map[string]int
}

// NewMediaServer starts a server for files keyed by URL path. Unknown paths
// return 404. The server is closed on test cleanup.
func NewMediaServer(t testing.TB, files map[string]MediaFile) *MediaServer {
	t.Helper()

	if files == nil {
		files = make(map[string]MediaFile)
	}
	ms := &MediaServer{files: files, hits: make(map[string]int)}
	ms.Server = httptest.NewServer(http.HandlerFunc(ms.serve))
	t.Cleanup(ms.Close)
	return ms
}

func (ms *MediaServer) serve(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	ms.hits[r.URL.Path]++
	file, ok := ms.files[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if file.Delay > 0 {
		select {
		case <-time.After(file.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if file.ContentType != "" {
		w.Header().Set("Content-Type", file.ContentType)
	} else {
		// Suppress content sniffing so clients see no Content-Type.
		w.Header()["Content-Type"] = nil
	}
	status := file.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(file.Body))
}

// URL returns the absolute URL for path on this server.
func (ms *MediaServer) URL(path string) string {
	return ms.Server.URL + "/" + strings.TrimPrefix(path, "/")
}

// Hits reports how many requests path received.
func (ms *MediaServer) Hits(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.hits[path]
}

// Set adds or replaces the response for path.
func (ms *MediaServer) Set(path string, file MediaFile) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.files[path] = file
}
