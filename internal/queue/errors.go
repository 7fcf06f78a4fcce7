package queue

import "errors"

// ErrorClassifier allows errors to declare their classification for status mapping.
// Errors that implement this interface can influence whether a failure results in
// StatusFailed (retry-able) or StatusRejected (the request itself is unusable).
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error.
	// Known kinds that map to StatusRejected: "validation", "configuration", "not_found"
	// All other kinds map to StatusFailed.
	ErrorKind() string
}

// ErrInvalidRequest reports an archive request missing required fields.
var ErrInvalidRequest = errors.New("invalid archive request")

// FailureStatus maps an archive error to the queue status the workflow manager
// should persist after the attempt fails.
func FailureStatus(err error) Status {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorKind() {
		case "validation", "configuration", "not_found":
			return StatusRejected
		}
	}
	return StatusFailed
}
