package archive

import "fmt"

// CircularReferenceError reports a manifest that was reached a second time
// within one archive run.
type CircularReferenceError struct {
	URL string
}

func (e *CircularReferenceError) ErrorKind() string { return "validation" }

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference: %s was already visited", e.URL)
}

// AntiAbuseLimitError reports a run that visited more distinct manifests
// than allowed.
type AntiAbuseLimitError struct {
	URL   string
	Limit int
}

func (e *AntiAbuseLimitError) ErrorKind() string { return "validation" }

func (e *AntiAbuseLimitError) Error() string {
	return fmt.Sprintf("manifest limit exceeded: more than %d manifests (at %s)", e.Limit, e.URL)
}
