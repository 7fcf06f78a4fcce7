package daemonrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/muxinc/video-archivist/internal/archive"
	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/notifications"
	"github.com/muxinc/video-archivist/internal/offers"
	"github.com/muxinc/video-archivist/internal/preflight"
	"github.com/muxinc/video-archivist/internal/services/github"
	"github.com/muxinc/video-archivist/internal/storage"
	"github.com/muxinc/video-archivist/internal/transfer"
)

const githubRequestTimeout = 30 * time.Second

// Services bundles the collaborators built from configuration. It is shared
// by the daemon and the one-shot CLI commands.
type Services struct {
	Bucket   storage.Bucket
	Archiver *archive.Archiver
	// GitHub is nil when issue comments are disabled.
	GitHub   *github.Client
	Offers   *offers.Hasher
	Notifier notifications.Service

	closer io.Closer
}

// StorageOptions maps the [storage] config section onto storage.Options.
func StorageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		Backend:         storage.Backend(cfg.Storage.Backend),
		Bucket:          cfg.Storage.Bucket,
		CredentialsFile: cfg.Storage.CredentialsFile,
		LocalDir:        cfg.Storage.LocalDir,
	}
}

// BuildServices opens the bucket and constructs the archiver, offer hasher,
// notifier, and optional GitHub client. Callers must Close the result.
func BuildServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	bucket, closer, err := storage.Open(ctx, StorageOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	hasher, err := offers.NewHasher(cfg.Offers.HashSalt, cfg.Offers.HashMinLength)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	client := transfer.NewClient(cfg.FetchTimeout(), cfg.Fetch.UserAgent)
	svc := &Services{
		Bucket: bucket,
		Archiver: archive.New(client, bucket, cfg.Storage.URLBase, archive.Options{
			MaxConcurrentTransfers: cfg.Archive.MaxConcurrentTransfers,
			Logger:                 logger,
		}),
		Offers:   hasher,
		Notifier: notifications.NewService(cfg),
		closer:   closer,
	}
	if cfg.GitHub.Enabled {
		svc.GitHub = github.NewClient(cfg.GitHub.BaseURL, cfg.GitHub.Token, &http.Client{
			Timeout: githubRequestTimeout,
		})
	}
	return svc, nil
}

// PreflightTargets returns the live collaborators preflight should probe.
func (s *Services) PreflightTargets() preflight.Targets {
	targets := preflight.Targets{}
	if checker, ok := s.Bucket.(preflight.Checker); ok {
		targets.Storage = checker
	}
	if s.GitHub != nil {
		targets.GitHub = s.GitHub
	}
	return targets
}

// Close releases the storage client.
func (s *Services) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
