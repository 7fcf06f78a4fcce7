package config

const (
	defaultConfigPath                = "~/.config/archivist/config.toml"
	defaultStateDir                  = "~/.local/share/archivist"
	defaultLogDir                    = "~/.local/share/archivist/logs"
	defaultLocalStorageDir           = "~/.local/share/archivist/objects"
	defaultAPIBind                   = "127.0.0.1:7489"
	defaultStorageURLBase            = "https://storage.googleapis.com"
	defaultFetchTimeoutSeconds       = 120
	defaultUserAgent                 = "video-archivist/dev"
	defaultOfferHashSalt             = "archive offer hashid"
	defaultOfferHashMinLength        = 6
	defaultGitHubBaseURL             = "https://api.github.com"
	defaultNotifyRequestTimeout      = 10
	defaultWorkflowPollInterval      = 5
	defaultWorkflowErrorRetry        = 10
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultWorkflowArchiveTimeout    = 3600
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 60
)

// Storage backends accepted by storage.backend.
const (
	StorageBackendGCS   = "gcs"
	StorageBackendLocal = "local"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Storage: Storage{
			Backend:  StorageBackendGCS,
			LocalDir: defaultLocalStorageDir,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Offers: Offers{
			HashSalt:      defaultOfferHashSalt,
			HashMinLength: defaultOfferHashMinLength,
		},
		GitHub: GitHub{
			BaseURL: defaultGitHubBaseURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Archive:        true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultWorkflowPollInterval,
			ErrorRetryInterval: defaultWorkflowErrorRetry,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
			ArchiveTimeout:     defaultWorkflowArchiveTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
