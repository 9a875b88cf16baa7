package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Queue a local spectrum file for ingest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory, expected a spectrum file", path)
			}
			if !cfg.AcceptsExtension(filepath.Ext(path)) {
				return fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
			}

			return ctx.withQueue(func(q queueAPI) error {
				item, addErr := q.AddFile(cmd.Context(), path)
				if addErr != nil {
					return addErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item %d\n", filepath.Base(path), item.ID)
				return nil
			})
		},
	}
}
