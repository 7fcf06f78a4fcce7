package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/muxinc/video-archivist/internal/api"
	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/notifications"
	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/workflow"
)

// Dependencies are the collaborators a Daemon coordinates. Notifier and
// Offers may be nil.
type Dependencies struct {
	Store    *queue.Store
	Workflow *workflow.Manager
	Notifier notifications.Service
	Offers   api.OfferEncoder
	Logger   *slog.Logger
}

// Daemon coordinates the background worker and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	notifier notifications.Service
	offers   api.OfferEncoder
	queueSvc *api.QueueService
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Workflow == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(deps.Logger, "daemon"),
		store:    deps.Store,
		workflow: deps.Workflow,
		notifier: notifier,
		offers:   deps.Offers,
		queueSvc: api.NewQueueService(deps.Store),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, deps.Logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, returns interrupted items to the queue,
// and launches the worker and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another archivist daemon is already running (lock %s)", d.lockPath)
	}

	if reset, err := d.store.ResetStuckProcessing(ctx); err != nil {
		logging.WarnWithContext(d.logger, "failed to reset interrupted items", "reset_stuck_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "items left archiving by a previous run stay stuck until reclaimed"),
		)
	} else if reset > 0 {
		d.logger.Info("returned interrupted items to the queue",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "reset_stuck"),
		)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("archivist daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("archivist daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Enqueue adds an archive request to the queue.
func (d *Daemon) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResult, error) {
	result, err := api.Enqueue(ctx, d.store, d.offers, req)
	if err != nil {
		return api.EnqueueResult{}, err
	}
	d.logger.Info("archive request queued",
		logging.Int64(logging.FieldItemID, result.Item.ID),
		logging.String(logging.FieldURL, result.Item.SourceURL),
		logging.String("offer_hash", result.Item.OfferHash),
		logging.Bool("duplicate", result.Duplicate),
		logging.String(logging.FieldEventType, "archive_queued"),
	)
	return result, nil
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]api.QueueItem, error) {
	return d.queueSvc.List(ctx, statuses...)
}

// DescribeItem returns a single queue item, or nil when it does not exist.
func (d *Daemon) DescribeItem(ctx context.Context, id int64) (*api.QueueItem, error) {
	return d.queueSvc.Describe(ctx, id)
}

// RetryItems resets failed or rejected items back to pending.
func (d *Daemon) RetryItems(ctx context.Context, ids []int64) (api.RetryItemsResult, error) {
	return api.RetryItemsByID(ctx, d.queueSvc, ids)
}

var errItemInFlight = errors.New("queue item is being archived; wait for it to finish")

// RemoveItem deletes a queue item that is not currently being archived.
func (d *Daemon) RemoveItem(ctx context.Context, id int64) (bool, error) {
	item, err := d.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return false, err
	}
	if item.IsProcessing() {
		return false, errItemInFlight
	}
	removed, err := d.store.Remove(ctx, id)
	if err == nil && removed {
		d.logger.Info("queue item removed",
			logging.Int64(logging.FieldItemID, id),
			logging.String(logging.FieldEventType, "item_removed"),
		)
	}
	return removed, err
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification publishes a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTestNotification, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddress returns the bound API address, or "" when the API is disabled
// or not yet listening.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
	}
}
