package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/notifications"
	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/services/github"
)

// Archiver copies a source URL into storage under prefix and returns the
// public URL of the archived copy.
type Archiver interface {
	Archive(ctx context.Context, sourceURL, prefix string) (string, error)
}

// IssueReporter posts outcome comments on the requesting issue. It is
// satisfied by *github.Client.
type IssueReporter interface {
	github.Commenter
	AuthenticatedLogin(ctx context.Context) (string, error)
}

// Dependencies are the collaborators a Manager drives. Reporter and
// Notifier may be nil.
type Dependencies struct {
	Archiver Archiver
	Reporter IssueReporter
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Manager coordinates queue processing for archive requests.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	archiver     Archiver
	reporter     IssueReporter
	notifier     notifications.Service
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration
	heartbeat    *HeartbeatMonitor

	botMu    sync.Mutex
	botLogin string

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, deps Dependencies) *Manager {
	logger := logging.NewComponentLogger(deps.Logger, "workflow")
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		archiver:     deps.Archiver,
		reporter:     deps.Reporter,
		notifier:     notifier,
		logger:       logger,
		botLogin:     cfg.GitHub.BotUsername,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}
