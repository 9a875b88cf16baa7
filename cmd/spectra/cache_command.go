package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spectra/internal/config"
	"spectra/internal/fetchcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the archive download cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and byte usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openFetchCache(ctx)
			if err != nil {
				return err
			}

			stats := cache.Stats()
			maxLabel := "unlimited"
			if stats.MaxBytes > 0 {
				maxLabel = humanize.Bytes(uint64(stats.MaxBytes))
			}
			rows := [][]string{
				{"Entries", fmt.Sprintf("%d", stats.Entries)},
				{"Size", humanize.Bytes(uint64(stats.TotalBytes))},
				{"Limit", maxLabel},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Metric", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached archive downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openFetchCache(ctx)
			if err != nil {
				return err
			}

			entries := cache.List()
			stdout := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(stdout, "Cache is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.Archive,
					entry.Target,
					humanize.Bytes(uint64(entry.Size)),
					entry.FetchedAt.UTC().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Archive", "Target", "Size", "Fetched"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openFetchCache(ctx)
			if err != nil {
				return err
			}

			removed, err := cache.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached download(s)\n", removed)
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd, listCmd, clearCmd)
	return cacheCmd
}

func openFetchCache(ctx *commandContext) (*fetchcache.Cache, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.FetchCache.Enabled {
		return nil, fmt.Errorf("fetch cache is disabled in the configuration")
	}
	dir, err := config.ExpandPath(cfg.FetchCache.Dir)
	if err != nil {
		return nil, err
	}
	return fetchcache.New(dir, int64(cfg.FetchCache.MaxMiB)<<20, nil), nil
}
