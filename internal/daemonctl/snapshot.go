package daemonctl

import (
	"context"
	"errors"

	"github.com/muxinc/video-archivist/internal/api"
	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/preflight"
	"github.com/muxinc/video-archivist/internal/queue"
)

// Snapshot is the combined view printed by `archivist status`.
type Snapshot struct {
	Running    bool               `json:"running"`
	PID        int                `json:"pid,omitempty"`
	APIError   string             `json:"apiError,omitempty"`
	Daemon     *api.DaemonStatus  `json:"daemon,omitempty"`
	QueueStats map[string]int     `json:"queueStats"`
	Checks     []preflight.Result `json:"checks"`
}

// BuildStatusSnapshot asks a running daemon for its status and falls back to
// reading the queue database directly when the API is unreachable.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config, targets preflight.Targets) (*Snapshot, error) {
	snap := &Snapshot{}
	snap.PID, snap.Running = RunningPID(cfg)

	if client, err := NewClient(cfg); err == nil {
		status, statusErr := client.Status(ctx)
		switch {
		case statusErr == nil:
			snap.Daemon = status
			snap.Running = true
			snap.PID = status.PID
			snap.QueueStats = status.Workflow.QueueStats
		case errors.Is(statusErr, ErrDaemonNotRunning):
		default:
			snap.APIError = statusErr.Error()
		}
	} else if !errors.Is(err, ErrAPIDisabled) {
		snap.APIError = err.Error()
	}

	if snap.QueueStats == nil {
		store, err := queue.Open(cfg)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		stats, err := api.NewQueueService(store).Stats(ctx)
		if err != nil {
			return nil, err
		}
		snap.QueueStats = stats
	}

	snap.Checks = preflight.RunAll(ctx, cfg, targets)
	return snap, nil
}
