package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"huddle/internal/app"
)

func newAgendaCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Manage the meeting agenda used by the agenda checker",
	}
	cmd.AddCommand(newAgendaShowCommand(ctx))
	cmd.AddCommand(newAgendaSetCommand(ctx))
	cmd.AddCommand(newAgendaImportPDFCommand(ctx))
	return cmd
}

func newAgendaShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current agenda",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				text, err := a.Agenda.Read(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if strings.TrimSpace(text) == "" {
					fmt.Fprintln(out, "No agenda set")
					return nil
				}
				fmt.Fprintln(out, strings.TrimSpace(text))
				return nil
			})
		},
	}
}

func newAgendaSetCommand(ctx *commandContext) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "set [file | -]",
		Short: "Replace the agenda with the contents of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if !clear {
				path := "-"
				if len(args) == 1 {
					path = args[0]
				}
				data, _, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				text = string(data)
			} else if len(args) > 0 {
				return errors.New("--clear does not take a file")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.Agenda.Write(cmd.Context(), text); err != nil {
					return err
				}
				if strings.TrimSpace(text) == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Agenda cleared")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Agenda updated")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the agenda")
	return cmd
}

func newAgendaImportPDFCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import-pdf <file>",
		Short: "Extract text from a PDF and store it as the agenda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, label, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				text, err := a.ImportAgendaPDF(cmd.Context(), data)
				if err != nil {
					return fmt.Errorf("import %s: %w", label, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported agenda from %s (%d lines)\n", label, strings.Count(text, "\n")+1)
				return nil
			})
		},
	}
}
