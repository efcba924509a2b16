package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"huddle/internal/deps"
	"huddle/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipRemote bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, credentials, backends, and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n\n", ctx.configPath)
			}

			var results []preflight.Result
			if skipRemote {
				results = []preflight.Result{
					preflight.CheckDirectoryAccess("Transcripts directory", cfg.Paths.TranscriptsDir),
					preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
					preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
				}
			} else {
				results = preflight.RunAll(cmd.Context(), cfg)
			}
			checkRows := make([][]string, 0, len(results))
			for _, r := range results {
				checkRows = append(checkRows, []string{r.Name, passFail(r.Passed), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil))

			statuses := preflight.CheckSystemDeps(cfg)
			depRows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := passFail(s.Available)
				if !s.Available && s.Optional {
					state = "optional"
				}
				detail := s.Detail
				if s.Available {
					detail = s.Path
				}
				depRows = append(depRows, []string{s.Name, s.Command, state, detail})
			}
			if len(depRows) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Status", "Detail"}, depRows, nil))
			}

			failed := len(preflight.Failed(results)) + len(deps.MissingRequired(statuses))
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			fmt.Fprintln(out, "\nAll checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipRemote, "offline", false, "Skip credential and endpoint checks")
	return cmd
}

func passFail(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
