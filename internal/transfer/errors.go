package transfer

import (
	"fmt"
	"net/http"
)

// UpstreamFetchError reports a failed GET of a source URL, either a
// transport failure (Err set) or a non-2xx response (StatusCode set).
type UpstreamFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// ErrorKind classifies 404 and 410 responses as not_found; anything else
// may succeed on retry.
func (e *UpstreamFetchError) ErrorKind() string {
	switch e.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return "not_found"
	default:
		return "transient"
	}
}

// UploadError reports a failed write to the object store. Cleanup carries
// the error from deleting the partial object, if that also failed.
type UploadError struct {
	Path    string
	Err     error
	Cleanup error
}

func (e *UploadError) Error() string {
	if e.Cleanup != nil {
		return fmt.Sprintf("upload %s: %v (cleanup failed: %v)", e.Path, e.Err, e.Cleanup)
	}
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() []error {
	if e.Cleanup != nil {
		return []error{e.Err, e.Cleanup}
	}
	return []error{e.Err}
}
