package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeOffers()
	c.normalizeGitHub()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = lookupEnv("ARCHIVIST_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendGCS
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = lookupEnv("VIDEO_BUCKET_NAME")
	}
	c.Storage.URLBase = strings.TrimRight(strings.TrimSpace(c.Storage.URLBase), "/")
	if c.Storage.URLBase == "" {
		c.Storage.URLBase = strings.TrimRight(lookupEnv("VIDEO_URL_BASE"), "/")
	}
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = defaultLocalStorageDir
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	if c.Storage.URLBase == "" {
		if c.Storage.Backend == StorageBackendLocal {
			c.Storage.URLBase = "file://" + c.Storage.LocalDir
		} else {
			c.Storage.URLBase = defaultStorageURLBase
		}
	}
	c.Storage.CredentialsFile = strings.TrimSpace(c.Storage.CredentialsFile)
	if c.Storage.CredentialsFile == "" {
		c.Storage.CredentialsFile = lookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.Storage.CredentialsFile, err = expandPath(c.Storage.CredentialsFile); err != nil {
		return fmt.Errorf("storage.credentials_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSeconds
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeOffers() {
	if c.Offers.HashSalt == "" {
		c.Offers.HashSalt = defaultOfferHashSalt
	}
	if c.Offers.HashMinLength == 0 {
		c.Offers.HashMinLength = defaultOfferHashMinLength
	}
}

func (c *Config) normalizeGitHub() {
	c.GitHub.Token = strings.TrimSpace(c.GitHub.Token)
	if c.GitHub.Token == "" {
		c.GitHub.Token = lookupEnv("ARCHIVIST_GITHUB_TOKEN")
	}
	if c.GitHub.Token == "" {
		c.GitHub.Token = lookupEnv("GITHUB_ACCESS_TOKEN")
	}
	c.GitHub.BaseURL = strings.TrimRight(strings.TrimSpace(c.GitHub.BaseURL), "/")
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = defaultGitHubBaseURL
	}
	c.GitHub.BotUsername = strings.TrimPrefix(strings.TrimSpace(c.GitHub.BotUsername), "@")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
