package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"huddle/internal/daemonctl"
)

const (
	startWaitTimeout = 15 * time.Second
	stopGracePeriod  = 10 * time.Second
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the huddle server in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cfg, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath,
				LogLevel:   *ctx.logLevelFlag,
			}, startWaitTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (pid %d)\n", result.Message, result.PID)
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background huddle server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cmd.Context(), cfg, stopGracePeriod)
			if errors.Is(err, daemonctl.ErrServerNotRunning) {
				fmt.Fprintln(out, "Huddle server is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Huddle server (pid %d) did not exit in %s and was killed\n", result.PID, stopGracePeriod)
				return nil
			}
			fmt.Fprintf(out, "Huddle server stopped (pid %d)\n", result.PID)
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the huddle server is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot := daemonctl.Status(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(cmd, snapshot)
			}

			rows := [][]string{
				{"Server", runningLabel(snapshot)},
				{"Address", snapshot.Address},
				{"Worker", cfg.Worker.Backend},
				{"Transcription", cfg.Transcription.Backend},
				{"Assessor", cfg.Triage.Assessor},
				{"Mail", yesNo(cfg.MailConfigured())},
			}
			if snapshot.Health != nil {
				rows = append(rows, []string{"Health", snapshot.Health.Status})
			}
			fmt.Fprintln(out, renderTable([]string{"Item", "Value"}, rows, nil))

			if len(snapshot.Dependencies) > 0 {
				depRows := make([][]string, 0, len(snapshot.Dependencies))
				for _, dep := range snapshot.Dependencies {
					state := passFail(dep.Available)
					if !dep.Available && dep.Optional {
						state = "optional"
					}
					depRows = append(depRows, []string{dep.Name, dep.Command, state})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Status"}, depRows, nil))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status snapshot as JSON")
	return cmd
}

func runningLabel(snapshot daemonctl.StatusSnapshot) string {
	switch {
	case !snapshot.Running:
		return "stopped"
	case snapshot.Health == nil:
		return fmt.Sprintf("starting (pid %d, API not answering)", snapshot.PID)
	default:
		return fmt.Sprintf("running (pid %d)", snapshot.PID)
	}
}
