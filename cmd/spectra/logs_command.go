package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"spectra/internal/ipc"
	"spectra/internal/logging"
	"spectra/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Prefer the daemon's view of its log; read the file directly
			// when it is not running.
			if client, dialErr := ctx.dialClient(); dialErr == nil {
				defer client.Close()
				return tailViaDaemon(cmd, client, lines, follow)
			}

			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			return logs.Tail(cmd.Context(), path, logs.Options{
				Lines:  lines,
				Follow: follow,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of backlog lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming appended log lines")
	return cmd
}

func tailViaDaemon(cmd *cobra.Command, client *ipc.Client, lines int, follow bool) error {
	stdout := cmd.OutOrStdout()

	resp, err := client.LogTail(-1, lines)
	if err != nil {
		return err
	}
	for _, line := range resp.Lines {
		fmt.Fprintln(stdout, line)
	}
	if !follow {
		return nil
	}

	offset := resp.Offset
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
		}
		resp, err := client.LogTail(offset, 0)
		if err != nil {
			return err
		}
		offset = resp.Offset
		for _, line := range resp.Lines {
			fmt.Fprintln(stdout, line)
		}
	}
}
