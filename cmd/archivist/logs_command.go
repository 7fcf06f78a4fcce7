package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muxinc/video-archivist/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var itemID int64

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the newest daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := logs.Latest(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			var keep logs.Filter
			if itemID > 0 {
				keep = logs.ForItem(itemID)
			}

			out := cmd.OutOrStdout()
			recent, offset, err := logs.Last(path, lines, keep)
			if err != nil {
				return err
			}
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, keep, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing records to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing records as they are written")
	cmd.Flags().Int64Var(&itemID, "item", 0, "Only show records for this queue item")
	return cmd
}
