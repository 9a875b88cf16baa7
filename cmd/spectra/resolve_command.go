package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spectra/internal/archives/simbad"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a target name against SIMBAD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Archives.SIMBAD.Enabled {
				return fmt.Errorf("simbad archive is disabled in the configuration")
			}

			client, err := simbad.New(
				cfg.Archives.SIMBAD.BaseURL,
				simbad.WithHTTPClient(&http.Client{
					Timeout: time.Duration(cfg.Archives.RequestTimeout) * time.Second,
				}),
			)
			if err != nil {
				return err
			}

			name := strings.TrimSpace(args[0])
			obj, err := client.Resolve(cmd.Context(), name)
			if errors.Is(err, simbad.ErrNotResolved) {
				return fmt.Errorf("no SIMBAD match for %q", name)
			}
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Main ID", obj.MainID},
				{"RA (deg)", fmt.Sprintf("%.6f", obj.RA)},
				{"Dec (deg)", fmt.Sprintf("%.6f", obj.Dec)},
			}
			if obj.ObjectType != "" {
				rows = append(rows, []string{"Object Type", obj.ObjectType})
			}
			if obj.SpectralType != "" {
				rows = append(rows, []string{"Spectral Type", obj.SpectralType})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
