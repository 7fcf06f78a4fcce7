package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.archiver == nil {
		m.mu.Unlock()
		return errors.New("workflow archiver not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	m.logger.Info("workflow started",
		logging.Duration("poll_interval", m.pollInterval),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	for {
		if ctx.Err() != nil {
			m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
			return
		}

		processed, err := m.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			continue
		case err != nil:
			m.handleNextItemError(ctx, err)
		case !processed:
			m.wait(ctx, m.pollInterval)
		}
	}
}

// RunOnce reclaims stale items and processes at most one pending item. It
// reports whether an item was processed. Archive failures are recorded on the
// item and do not produce an error; only queue access problems do.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	if err := m.heartbeat.ReclaimStaleItems(ctx); err != nil {
		logging.WarnWithContext(m.logger, "reclaim stale items failed; stuck items may remain", "heartbeat_reclaim_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}

	item, err := m.store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	claimed, err := m.store.Claim(ctx, item)
	if err != nil {
		return false, err
	}
	if !claimed {
		// Another worker (or a CLI retry) moved it first.
		return false, nil
	}
	m.processItem(ctx, item)
	return true, nil
}

func (m *Manager) handleNextItemError(ctx context.Context, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(m.logger, "failed to fetch next queue item", "queue_fetch_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	m.notifyError(ctx, "queue poll", err)
	m.wait(ctx, m.retryDelay)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
