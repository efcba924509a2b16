package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"huddle/internal/api"
	"huddle/internal/app"
)

func newTranscriptsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"t"},
		Short:   "Inspect stored transcripts",
	}
	cmd.AddCommand(newTranscriptsListCommand(ctx))
	cmd.AddCommand(newTranscriptsShowCommand(ctx))
	cmd.AddCommand(newTranscriptsReindexCommand(ctx))
	return cmd
}

func newTranscriptsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transcripts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				entries, err := api.NewTranscriptService(a.Transcripts).List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []api.TranscriptEntry{}
					}
					return writeJSON(cmd, api.TranscriptListResponse{Items: entries})
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No transcripts stored")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.Reference,
						entry.Shape,
						formatCount(entry.Bytes),
						entry.Source,
						entry.CreatedAt,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Reference", "Shape", "Bytes", "Source", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of transcripts to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func newTranscriptsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <reference>",
		Short: "Print one transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				resp, err := api.NewTranscriptService(a.Transcripts).Describe(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reference: %s\n", resp.Entry.Reference)
				fmt.Fprintf(out, "Shape:     %s\n", resp.Entry.Shape)
				if resp.Entry.Source != "" {
					fmt.Fprintf(out, "Source:    %s\n", resp.Entry.Source)
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, strings.TrimRight(resp.Text, "\n"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func newTranscriptsReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the catalog from transcript files on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				count, err := a.Transcripts.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %s transcripts\n", formatCount(int64(count)))
				return nil
			})
		},
	}
}
