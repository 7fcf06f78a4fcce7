package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/daemonctl"
	"github.com/muxinc/video-archivist/internal/daemonrun"
	"github.com/muxinc/video-archivist/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, storage, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), cmd, func(cfg *config.Config, svc *daemonrun.Services) error {
				snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg, svc.PreflightTargets())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, snap)
				}
				printStatus(cmd, cfg, snap, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, cfg *config.Config, snap *daemonctl.Snapshot, colorize bool) {
	out := cmd.OutOrStdout()
	lines := renderSectionHeader("Daemon", colorize)
	switch {
	case snap.Running:
		lines = append(lines, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(snap.PID)+")", colorize))
	default:
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	switch {
	case snap.APIError != "":
		lines = append(lines, renderStatusLine("API", statusError, snap.APIError, colorize))
	case cfg.Paths.APIBind == "":
		lines = append(lines, renderStatusLine("API", statusInfo, "disabled", colorize))
	case snap.Daemon != nil:
		lines = append(lines, renderStatusLine("API", statusOK, cfg.Paths.APIBind, colorize))
	}
	if snap.Daemon != nil && snap.Daemon.Workflow.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, snap.Daemon.Workflow.LastError, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, check := range snap.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Queue", colorize)...)
	for _, status := range queue.AllStatuses() {
		count := snap.QueueStats[string(status)]
		kind := statusInfo
		if count > 0 {
			kind = queueStatusKind(status)
		}
		lines = append(lines, renderStatusLine(formatStatusLabel(string(status)), kind, strconv.Itoa(count), colorize))
	}

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
