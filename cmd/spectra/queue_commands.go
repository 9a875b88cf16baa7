package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the ingest queue",
	}

	queueCmd.AddCommand(
		newQueueStatusCommand(ctx),
		newQueueListCommand(ctx),
		newQueueClearCommand(ctx),
		newQueueClearFailedCommand(ctx),
		newQueueResetStuckCommand(ctx),
		newQueueRetryCommand(ctx),
		newQueueRemoveCommand(ctx),
		newQueueHealthCommand(ctx),
	)
	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue item counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				stats, err := q.Stats(cmd.Context())
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if ctx.jsonOutput() {
					return printJSON(stdout, stats)
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				items, err := q.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if ctx.jsonOutput() {
					return printJSON(stdout, items)
				}
				rows := buildQueueListRows(items)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Target", "Source", "Status", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool
	var failedOnly bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			}
			return ctx.withQueue(func(q queueAPI) error {
				var removed int64
				var err error
				var label string
				switch {
				case completedOnly:
					removed, err = q.ClearCompleted(cmd.Context())
					label = "completed item(s)"
				case failedOnly:
					removed, err = q.ClearFailed(cmd.Context())
					label = "failed item(s)"
				default:
					removed, err = q.ClearAll(cmd.Context())
					label = "item(s)"
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", removed, label)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed items")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only remove failed items")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				removed, err := q.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed item(s)\n", removed)
				return nil
			})
		},
	}
}

func newQueueResetStuckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Reset items stuck in a processing state back to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				updated, err := q.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d item(s) to pending\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed items (all failed items when no IDs are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				updated, retryErr := q.Retry(cmd.Context(), ids)
				if retryErr != nil {
					return retryErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d item(s) for retry\n", updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a single queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				removed, removeErr := q.Remove(cmd.Context(), id)
				if removeErr != nil {
					return removeErr
				}
				if !removed {
					return fmt.Errorf("queue item %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return printJSON(cmd.OutOrStdout(), health)
				}
				rows := [][]string{
					{"Total", strconv.Itoa(health.Total)},
					{"Pending", strconv.Itoa(health.Pending)},
					{"Processing", strconv.Itoa(health.Processing)},
					{"Failed", strconv.Itoa(health.Failed)},
					{"Review", strconv.Itoa(health.Review)},
					{"Completed", strconv.Itoa(health.Completed)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Metric", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func parseItemIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseItemID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid queue item id %q", arg)
	}
	return id, nil
}
