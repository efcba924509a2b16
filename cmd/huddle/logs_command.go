package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"huddle/internal/logging"
	"huddle/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the server log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()
			if follow {
				return logs.Follow(cmd.Context(), path, lines, 0, func(line string) {
					fmt.Fprintln(out, line)
				})
			}
			tail, _, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			if len(tail) == 0 {
				fmt.Fprintln(out, "No log entries available")
				return nil
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	return cmd
}
