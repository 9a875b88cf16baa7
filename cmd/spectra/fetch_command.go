package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:   "fetch <archive> <target>",
		Short: "Queue an archive fetch for a target",
		Long: `Queue a spectrum fetch from a remote archive.

The archive name is one of mast, sdss, or eso. Additional query
parameters are passed with repeated --param key=value flags.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive := strings.ToLower(strings.TrimSpace(args[0]))
			target := strings.TrimSpace(args[1])
			if archive == "" {
				return fmt.Errorf("archive name required")
			}
			if target == "" {
				return fmt.Errorf("target name required")
			}

			query, err := parseQueryParams(params)
			if err != nil {
				return err
			}

			return ctx.withQueue(func(q queueAPI) error {
				item, addErr := q.AddFetch(cmd.Context(), archive, target, query)
				if addErr != nil {
					return addErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s fetch for %q as item %d\n", archive, target, item.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "Query parameter as key=value (repeatable)")
	return cmd
}

func parseQueryParams(params []string) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	query := make(map[string]string, len(params))
	for _, param := range params {
		key, value, found := strings.Cut(param, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected key=value", param)
		}
		query[key] = strings.TrimSpace(value)
	}
	return query, nil
}
