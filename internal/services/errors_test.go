package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrUpstream, "archiving", "fetch", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"archiving", "fetch", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "archiving", "parse", "invalid", nil)
	if status := services.FailureStatus(validationErr); status != queue.StatusRejected {
		t.Fatalf("expected rejected for validation error, got %s", status)
	}

	transientErr := services.Wrap(services.ErrStorage, "archiving", "upload", "upload failed", errors.New("io"))
	if status := services.FailureStatus(transientErr); status != queue.StatusFailed {
		t.Fatalf("expected failed for storage error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != queue.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}

func TestCauseReturnsInnermostMessage(t *testing.T) {
	base := errors.New("fetch https://x/seg.ts: unexpected status 404 Not Found")
	err := services.Wrap(services.ErrUpstream, "archiving", "fetch", "", fmt.Errorf("segment: %w", base))
	if got := services.Cause(err); got != "segment: "+base.Error() {
		t.Fatalf("Cause = %q", got)
	}
	if services.Cause(nil) != "" {
		t.Fatal("Cause(nil) should be empty")
	}
}
