package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muxinc/video-archivist/internal/api"
	"github.com/muxinc/video-archivist/internal/offers"
	"github.com/muxinc/video-archivist/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the archive queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var req api.EnqueueRequest

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a URL for the daemon to archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			hasher, err := offers.NewHasher(cfg.Offers.HashSalt, cfg.Offers.HashMinLength)
			if err != nil {
				return err
			}
			req.URL = args[0]
			return ctx.withStore(func(store *queue.Store) error {
				result, err := api.Enqueue(cmd.Context(), store, hasher, req)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if result.Duplicate {
					fmt.Fprintf(out, "Offer %s is already queued as item %d (%s)\n",
						result.Item.OfferHash, result.Item.ID, result.Item.Status)
					return nil
				}
				fmt.Fprintf(out, "Queued item %d for offer %s\n", result.Item.ID, result.Item.OfferHash)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&req.OfferID, "offer-id", 0, "Offer id; its hash names the archive")
	cmd.Flags().StringVar(&req.Prefix, "prefix", "", "Explicit destination prefix (instead of --offer-id)")
	cmd.Flags().StringVar(&req.Repo, "repo", "", "GitHub repository (owner/name) to comment on")
	cmd.Flags().IntVar(&req.IssueNumber, "issue", 0, "GitHub issue number to comment on")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := api.NewQueueService(store).Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]column{{title: "Status"}, {title: "Count", right: true}},
					buildQueueStatusRows(stats),
				))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFlags(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				items, err := api.NewQueueService(store).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if items == nil {
						items = []api.QueueItem{}
					}
					return writeJSON(cmd, api.QueueListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(queueListColumns, buildQueueListRows(items)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				item, err := api.NewQueueService(store).Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item %d not found", ids[0])
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.QueueItemResponse{Item: *item})
				}
				printQueueItem(cmd, *item, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func printQueueItem(cmd *cobra.Command, item api.QueueItem, colorize bool) {
	out := cmd.OutOrStdout()
	for _, line := range renderSectionHeader(fmt.Sprintf("Item %d", item.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	status := queue.Status(item.Status)
	fmt.Fprintln(out, renderStatusLine("Status", queueStatusKind(status), formatStatusLabel(item.Status), colorize))
	fmt.Fprintf(out, "Offer:        %s\n", item.OfferHash)
	if item.OfferID > 0 {
		fmt.Fprintf(out, "Offer ID:     %d\n", item.OfferID)
	}
	fmt.Fprintf(out, "Source:       %s\n", item.SourceURL)
	fmt.Fprintf(out, "Destination:  %s\n", item.DestinationPrefix)
	fmt.Fprintf(out, "Issue:        %s\n", formatIssue(item.Repo, item.IssueNumber))
	fmt.Fprintf(out, "Attempts:     %d\n", item.Attempts)
	fmt.Fprintf(out, "Created:      %s\n", formatDisplayTime(item.CreatedAt))
	fmt.Fprintf(out, "Updated:      %s\n", formatDisplayTime(item.UpdatedAt))
	if item.LastHeartbeat != "" {
		fmt.Fprintf(out, "Heartbeat:    %s\n", formatAge(item.LastHeartbeat, time.Now()))
	}
	if item.Progress.Message != "" {
		fmt.Fprintf(out, "Progress:     %s\n", item.Progress.Message)
	}
	if item.ArchiveURL != "" {
		fmt.Fprintf(out, "Archive URL:  %s\n", item.ArchiveURL)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:        %s\n", item.ErrorMessage)
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed items to pending (all failed items when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					count, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed items\n", count)
					return nil
				}
				result, err := api.RetryItemsByID(cmd.Context(), api.NewQueueService(store), ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RetryItemUpdated:
						fmt.Fprintf(out, "Item %d: retried\n", item.ID)
					case api.RetryItemNotFound:
						fmt.Fprintf(out, "Item %d: not found\n", item.ID)
					case api.RetryItemNotFailed:
						fmt.Fprintf(out, "Item %d: is %s, not failed\n", item.ID, item.PriorStatus)
					}
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(store *queue.Store) error {
				var (
					removed int64
					err     error
					label   = "queue"
				)
				switch {
				case clearCompleted:
					removed, err = store.ClearCompleted(cmd.Context())
					label = "completed"
				case clearFailed:
					removed, err = store.ClearFailed(cmd.Context())
					label = "failed"
				default:
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s items\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Only remove completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Only remove failed and rejected items")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				resp, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", resp.SchemaVersion)
				fmt.Fprintf(out, "queue_items table present: %s\n", yesNo(resp.TableExists))
				if len(resp.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(resp.MissingColumns, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
				fmt.Fprintf(out, "Total items: %d\n", resp.TotalItems)
				if resp.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", resp.Error)
				}
				return nil
			})
		},
	}
}

func parseStatusFlags(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
