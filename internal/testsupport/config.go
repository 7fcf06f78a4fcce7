package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/muxinc/video-archivist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Storage uses the local backend under the same temp root.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Storage.Backend = config.StorageBackendLocal
	cfg.Storage.Bucket = "archive"
	cfg.Storage.LocalDir = filepath.Join(base, "objects")
	cfg.Storage.URLBase = "https://storage.example.test"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithGitHub enables issue comments against baseURL.
func WithGitHub(baseURL, token string) ConfigOption {
	return func(c *config.Config) {
		c.GitHub.Enabled = true
		c.GitHub.BaseURL = baseURL
		c.GitHub.Token = token
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(c *config.Config) {
		c.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
