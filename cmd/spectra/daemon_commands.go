package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spectra/internal/config"
	"spectra/internal/daemonctl"
	"spectra/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the spectra daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the spectra daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.socketPath(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the spectra daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if ctx.jsonOutput() {
				return printJSON(stdout, statusResp)
			}
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range systemStatusLines(cfg, statusResp) {
				fmt.Fprintln(stdout, renderStatusLine(line.label, line.kind, line.detail, colorize))
			}
			fmt.Fprintln(stdout)

			if len(statusResp.StageHealth) > 0 {
				for _, line := range renderSectionHeader("Stage Health", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, health := range statusResp.StageHealth {
					fmt.Fprintln(stdout, stageHealthLine(health, colorize))
				}
				fmt.Fprintln(stdout)
			}

			for _, line := range renderSectionHeader("Library Paths", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range libraryPathLines(cfg) {
				fmt.Fprintln(stdout, renderStatusLine(line.label, line.kind, line.detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(statusResp.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

type statusLine struct {
	label  string
	kind   statusKind
	detail string
}

func systemStatusLines(cfg *config.Config, statusResp *ipc.StatusResponse) []statusLine {
	lines := make([]statusLine, 0, 4)
	if statusResp.Running {
		lines = append(lines, statusLine{label: "Spectra", kind: statusOK, detail: fmt.Sprintf("Running (pid %d)", statusResp.PID)})
	} else {
		lines = append(lines, statusLine{label: "Spectra", kind: statusWarn, detail: "Not running (run `spectra start`)"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, statusLine{label: "Notifications", kind: statusOK, detail: "Configured"})
	} else {
		lines = append(lines, statusLine{label: "Notifications", kind: statusInfo, detail: "Not configured"})
	}

	archives := enabledArchives(cfg)
	if len(archives) > 0 {
		lines = append(lines, statusLine{label: "Archives", kind: statusOK, detail: strings.Join(archives, ", ")})
	} else {
		lines = append(lines, statusLine{label: "Archives", kind: statusWarn, detail: "All archives disabled"})
	}

	if lastErr := strings.TrimSpace(statusResp.LastError); lastErr != "" {
		lines = append(lines, statusLine{label: "Last Error", kind: statusError, detail: lastErr})
	}
	return lines
}

func stageHealthLine(health ipc.StageHealth, colorize bool) string {
	if health.Ready {
		return renderStatusLine(health.Name, statusOK, "Ready", colorize)
	}
	detail := strings.TrimSpace(health.Detail)
	if detail == "" {
		detail = "not ready"
	}
	return renderStatusLine(health.Name, statusError, detail, colorize)
}

func libraryPathLines(cfg *config.Config) []statusLine {
	lines := make([]statusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Incoming", path: cfg.Paths.IncomingDir},
		{label: "Staging", path: cfg.Paths.StagingDir},
		{label: "Library", path: cfg.Paths.LibraryDir},
	} {
		info, err := os.Stat(dir.path)
		switch {
		case err != nil:
			lines = append(lines, statusLine{label: dir.label, kind: statusError, detail: fmt.Sprintf("%s (missing)", dir.path)})
		case !info.IsDir():
			lines = append(lines, statusLine{label: dir.label, kind: statusError, detail: fmt.Sprintf("%s (not a directory)", dir.path)})
		default:
			lines = append(lines, statusLine{label: dir.label, kind: statusOK, detail: dir.path})
		}
	}
	return lines
}

func enabledArchives(cfg *config.Config) []string {
	var names []string
	if cfg.Archives.MAST.Enabled {
		names = append(names, "mast")
	}
	if cfg.Archives.SIMBAD.Enabled {
		names = append(names, "simbad")
	}
	if cfg.Archives.SDSS.Enabled {
		names = append(names, "sdss")
	}
	if cfg.Archives.ESO.Enabled {
		names = append(names, "eso")
	}
	if cfg.Archives.NIST.Enabled {
		names = append(names, "nist")
	}
	return names
}

// daemonExecutable locates the spectrad binary: next to the CLI first, then
// on PATH.
func daemonExecutable() (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "spectrad")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("spectrad")
	if err != nil {
		return "", fmt.Errorf("locate spectrad binary: %w", err)
	}
	return path, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.configFlag != nil {
		if cfgPath := strings.TrimSpace(*ctx.configFlag); cfgPath != "" {
			opts.ConfigPath = cfgPath
		}
	}
	return opts
}
