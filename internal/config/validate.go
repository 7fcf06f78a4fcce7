package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateGitHub(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendGCS:
		if c.Storage.Bucket == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("storage.bucket is required for the gcs backend. Set VIDEO_BUCKET_NAME env var or edit %s (create with 'archivist config init')", defaultPath)
		}
	case StorageBackendLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir must be set for the local backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q (got %q)", StorageBackendGCS, StorageBackendLocal, c.Storage.Backend)
	}
	parsed, err := url.Parse(c.Storage.URLBase)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("storage.url_base must be an absolute URL (got %q)", c.Storage.URLBase)
	}
	switch parsed.Scheme {
	case "http", "https", "file":
	default:
		return fmt.Errorf("storage.url_base scheme %q is not supported", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.MaxConcurrentTransfers < 0 {
		return errors.New("archive.max_concurrent_transfers must be >= 0")
	}
	if c.Offers.HashMinLength < 0 {
		return errors.New("offers.hash_min_length must be >= 0")
	}
	return nil
}

func (c *Config) validateGitHub() error {
	if !c.GitHub.Enabled {
		return nil
	}
	if c.GitHub.Token == "" {
		return errors.New("github.token is required when github.enabled is true (or set ARCHIVIST_GITHUB_TOKEN)")
	}
	if !strings.HasPrefix(c.GitHub.BaseURL, "http://") && !strings.HasPrefix(c.GitHub.BaseURL, "https://") {
		return fmt.Errorf("github.base_url must be an http(s) URL (got %q)", c.GitHub.BaseURL)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	w := c.Workflow
	if w.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if w.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if w.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if w.HeartbeatTimeout <= w.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if w.ArchiveTimeout <= 0 {
		return errors.New("workflow.archive_timeout must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" {
		if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
			return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL (got %q)", topic)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
