package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muxinc/video-archivist/internal/queue"
)

var (
	ErrUpstream      = errors.New("upstream error")
	ErrStorage       = errors.New("storage error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps an archive error to the queue status the workflow
// manager persists. Errors that cannot succeed on a plain retry are
// rejected; everything else is failed.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return queue.StatusRejected
	default:
		return queue.FailureStatus(err)
	}
}

// Cause strips the marker and stage detail added by Wrap, returning the
// underlying error message suitable for showing to the requester.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		errs := multi.Unwrap()
		if len(errs) == 2 && isMarker(errs[0]) {
			return errs[1].Error()
		}
	}
	return err.Error()
}

func isMarker(err error) bool {
	for _, marker := range []error{ErrUpstream, ErrStorage, ErrValidation, ErrConfiguration, ErrNotFound, ErrTimeout, ErrTransient} {
		if err == marker {
			return true
		}
	}
	return false
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
