package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spectra/internal/archives/nist"
)

func newLinesCommand(ctx *commandContext) *cobra.Command {
	var minNm float64
	var maxNm float64
	cmd := &cobra.Command{
		Use:   "lines <species>",
		Short: "Query NIST ASD for spectral lines of a species",
		Long: `Query the NIST Atomic Spectra Database for known lines of a
species, for example "Fe I" or "H I", within a wavelength window in
nanometers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Archives.NIST.Enabled {
				return fmt.Errorf("nist archive is disabled in the configuration")
			}
			if maxNm <= minNm {
				return fmt.Errorf("--max-nm must be greater than --min-nm")
			}

			client, err := nist.New(
				cfg.Archives.NIST.BaseURL,
				nist.WithHTTPClient(&http.Client{
					Timeout: time.Duration(cfg.Archives.RequestTimeout) * time.Second,
				}),
			)
			if err != nil {
				return err
			}

			species := strings.TrimSpace(args[0])
			lines, err := client.FetchLines(cmd.Context(), species, minNm, maxNm)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(lines) == 0 {
				fmt.Fprintf(stdout, "No lines for %s between %.1f and %.1f nm\n", species, minNm, maxNm)
				return nil
			}

			rows := make([][]string, 0, len(lines))
			for _, line := range lines {
				intensity := line.RelativeIntensity
				if intensity == "" {
					intensity = "-"
				}
				aki := "-"
				if line.TransitionProb > 0 {
					aki = fmt.Sprintf("%.3e", line.TransitionProb)
				}
				rows = append(rows, []string{
					line.Species,
					fmt.Sprintf("%.4f", line.WavelengthNm),
					intensity,
					aki,
					line.LowerLevel,
					line.UpperLevel,
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Species", "Wavelength (nm)", "Intensity", "Aki", "Lower", "Upper"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().Float64Var(&minNm, "min-nm", 380, "Lower wavelength bound in nanometers")
	cmd.Flags().Float64Var(&maxNm, "max-nm", 750, "Upper wavelength bound in nanometers")
	return cmd
}
