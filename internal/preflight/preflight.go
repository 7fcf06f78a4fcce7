package preflight

import (
	"context"

	"github.com/muxinc/video-archivist/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Checker is implemented by collaborators that can verify their own
// connectivity, such as storage buckets and the GitHub client.
type Checker interface {
	Check(ctx context.Context) error
}

// Targets are the live collaborators to probe. Nil targets are skipped.
type Targets struct {
	Storage Checker
	GitHub  Checker
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Storage.Backend == config.StorageBackendLocal {
		results = append(results, CheckDirectoryAccess("Local storage", cfg.Storage.LocalDir))
	}
	if targets.Storage != nil {
		results = append(results, CheckStorage(ctx, cfg.Storage.Backend, cfg.Storage.Bucket, targets.Storage))
	}
	if cfg.GitHub.Enabled && targets.GitHub != nil {
		results = append(results, CheckGitHub(ctx, targets.GitHub))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
