package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muxinc/video-archivist/internal/api"
	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/daemonrun"
	"github.com/muxinc/video-archivist/internal/queue"
)

type archiveOutput struct {
	SourceURL  string `json:"sourceUrl"`
	Prefix     string `json:"prefix"`
	ArchiveURL string `json:"archiveUrl"`
	Duration   string `json:"duration"`
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var offerID int64
	var prefix string

	cmd := &cobra.Command{
		Use:   "archive <url>",
		Short: "Archive a playlist or file now, without the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd.Context(), cmd, func(cfg *config.Config, svc *daemonrun.Services) error {
				hash, err := api.ResolveOfferHash(svc.Offers, offerID, prefix)
				if err != nil {
					return err
				}
				sourceURL := strings.TrimSpace(args[0])
				dest := strings.Trim(strings.TrimSpace(prefix), "/")
				if dest == "" {
					dest = hash
				}
				if err := (queue.Request{SourceURL: sourceURL, OfferHash: hash}).Validate(); err != nil {
					return err
				}

				archiveCtx := cmd.Context()
				if timeout := cfg.ArchiveTimeout(); timeout > 0 {
					var cancel context.CancelFunc
					archiveCtx, cancel = context.WithTimeout(archiveCtx, timeout)
					defer cancel()
				}

				start := time.Now()
				url, err := svc.Archiver.Archive(archiveCtx, sourceURL, dest)
				if err != nil {
					return fmt.Errorf("archive %s: %w", sourceURL, err)
				}
				result := archiveOutput{
					SourceURL:  sourceURL,
					Prefix:     dest,
					ArchiveURL: url,
					Duration:   time.Since(start).Round(time.Millisecond).String(),
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.ArchiveURL)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&offerID, "offer-id", 0, "Offer id; its hash names the archive")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Explicit destination prefix (instead of --offer-id)")
	return cmd
}
