package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/muxinc/video-archivist/internal/services/github"
)

const serviceCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStorage verifies the archive bucket is reachable.
func CheckStorage(ctx context.Context, backend, bucket string, target Checker) Result {
	const name = "Storage"
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	if err := target.Check(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s bucket %q unreachable (%s)", backend, bucket, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s bucket %q reachable", backend, bucket)}
}

// CheckGitHub verifies the GitHub token is accepted.
func CheckGitHub(ctx context.Context, target Checker) Result {
	const name = "GitHub"
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	err := target.Check(checkCtx)
	var apiErr *github.APIError
	switch {
	case err == nil:
		return Result{Name: name, Passed: true, Detail: "token accepted"}
	case errors.As(err, &apiErr) && apiErr.StatusCode == 401:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%s)", summarizeError(err))}
	}
}

// summarizeError produces a human-readable summary for service check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
