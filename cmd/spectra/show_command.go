package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spectra/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				item, describeErr := q.Describe(cmd.Context(), id)
				if describeErr != nil {
					return describeErr
				}
				if item == nil {
					return fmt.Errorf("queue item %d not found", id)
				}
				if ctx.jsonOutput() {
					return printJSON(cmd.OutOrStdout(), item)
				}
				printQueueItem(cmd, *item)
				return nil
			})
		},
	}
}

func printQueueItem(cmd *cobra.Command, item api.QueueItem) {
	stdout := cmd.OutOrStdout()
	rows := [][]string{
		{"ID", fmt.Sprintf("%d", item.ID)},
		{"Target", queueItemTitle(item)},
		{"Source Kind", item.SourceKind},
		{"Status", formatStatusLabel(item.Status)},
		{"Lane", item.ProcessingLane},
		{"Created", formatDisplayTime(item.CreatedAt)},
		{"Updated", formatDisplayTime(item.UpdatedAt)},
		{"Fingerprint", formatFingerprint(item.Fingerprint)},
	}
	if item.SourcePath != "" {
		rows = append(rows, []string{"Source Path", item.SourcePath})
	}
	if item.ArchiveName != "" {
		rows = append(rows, []string{"Archive", item.ArchiveName})
	}
	if len(item.ArchiveQuery) > 0 {
		rows = append(rows, []string{"Query", string(item.ArchiveQuery)})
	}
	if item.FormatHint != "" {
		rows = append(rows, []string{"Format", item.FormatHint})
	}
	if item.ParsedFile != "" {
		rows = append(rows, []string{"Parsed File", item.ParsedFile})
	}
	if item.NormalizedFile != "" {
		rows = append(rows, []string{"Normalized File", item.NormalizedFile})
	}
	if item.OverlayFile != "" {
		rows = append(rows, []string{"Overlay File", item.OverlayFile})
	}
	if stage := strings.TrimSpace(item.Progress.Stage); stage != "" {
		rows = append(rows, []string{"Progress", fmt.Sprintf("%s (%.0f%%)", stage, item.Progress.Percent)})
	}
	if item.NeedsReview {
		reason := strings.TrimSpace(item.ReviewReason)
		if reason == "" {
			reason = "yes"
		}
		rows = append(rows, []string{"Needs Review", reason})
	}
	if item.ErrorMessage != "" {
		rows = append(rows, []string{"Error", item.ErrorMessage})
	}

	fmt.Fprintln(stdout, renderTable(
		[]string{"Field", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignLeft},
	))
}
