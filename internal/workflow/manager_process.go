package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/services"
)

const stageArchiving = "archiving"

// processItem archives a claimed item and persists the outcome.
func (m *Manager) processItem(ctx context.Context, item *queue.Item) {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithStage(ctx, stageArchiving)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	m.setLastItem(item)
	start := time.Now()
	logger.Info("archive started",
		logging.String(logging.FieldEventType, "archive_start"),
		logging.String(logging.FieldURL, item.SourceURL),
		logging.String("prefix", item.DestinationPrefix),
		logging.Int("attempt", item.Attempts),
	)

	archiveURL, err := m.archiveWithHeartbeat(ctx, item)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// Shutdown: leave the item archiving so the next start resets it.
			logger.Info("archive interrupted by shutdown", logging.String(logging.FieldEventType, "archive_interrupted"))
			return
		}
		m.handleFailure(ctx, logger, item, err)
		return
	}

	item.SetCompleted(archiveURL)
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist archive result: %w", err)
		m.setLastError(wrapped)
		logging.ErrorWithContext(logger, "failed to persist archive result", "archive_persist_failed",
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
		return
	}
	m.setLastItem(item)
	logger.Info("archive completed",
		logging.String(logging.FieldEventType, "archive_complete"),
		logging.String("archive_url", archiveURL),
		logging.Duration("duration", time.Since(start)),
	)
	m.reportSuccess(ctx, logger, item)
}

func (m *Manager) archiveWithHeartbeat(ctx context.Context, item *queue.Item) (string, error) {
	archiveCtx := ctx
	if timeout := m.cfg.ArchiveTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		archiveCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	archiveURL, err := m.archiver.Archive(archiveCtx, item.SourceURL, item.DestinationPrefix)
	hbCancel()
	hbWG.Wait()

	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = services.Wrap(services.ErrTimeout, stageArchiving, "archive",
			fmt.Sprintf("exceeded %s", m.cfg.ArchiveTimeout()), err)
	}
	return archiveURL, err
}

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, item *queue.Item, archiveErr error) {
	status := services.FailureStatus(archiveErr)
	message := services.Cause(archiveErr)
	item.SetFailed(status, message)
	m.setLastError(archiveErr)

	logging.ErrorWithContext(logger, "archive failed", "archive_failed",
		logging.Error(archiveErr),
		logging.String("resolved_status", string(item.Status)),
		logging.String(logging.FieldURL, item.SourceURL),
		logging.String(logging.FieldErrorHint, failureHint(item.Status)),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not record archive failure")
		} else {
			logger.Error("failed to persist archive failure", logging.Error(err))
		}
	}
	m.setLastItem(item)
	m.reportFailure(ctx, logger, item)
}

func failureHint(status queue.Status) string {
	if status == queue.StatusRejected {
		return "the source cannot be archived as-is; fix the playlist or URL and enqueue again"
	}
	return "retry with 'archivist queue retry' once the upstream or storage problem clears"
}
