package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"huddle/internal/api"
	"huddle/internal/app"
	"huddle/internal/transcript"
	"huddle/internal/triage"
)

// maxParallelTriage bounds concurrent triage runs when several references are given.
const maxParallelTriage = 4

func newTriageCommand(ctx *commandContext) *cobra.Command {
	var textPath string
	var email bool
	var emailTo []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "triage [reference...]",
		Short: "Route transcripts to the right agent and print the result",
		Long: "Triage one or more stored transcripts. With --text the file (or - for stdin)\n" +
			"is persisted first and the new transcript is triaged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if textPath == "" && len(args) == 0 {
				return errors.New("provide at least one transcript reference or --text")
			}
			refs := make([]transcript.Reference, 0, len(args)+1)
			for _, arg := range args {
				ref, err := transcript.ParseReference(strings.TrimSpace(arg))
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}
			var text []byte
			var label string
			if textPath != "" {
				var err error
				text, label, err = readInput(cmd, textPath)
				if err != nil {
					return err
				}
			}

			return ctx.withApp(cmd, func(a *app.App) error {
				if text != nil {
					ref, err := a.IngestText(cmd.Context(), string(text), label)
					if err != nil {
						return err
					}
					refs = append(refs, ref)
				}

				outcomes := make([]triage.Outcome, len(refs))
				g, gctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(maxParallelTriage)
				for i, ref := range refs {
					g.Go(func() error {
						outcome, err := a.RunTriage(gctx, ref)
						if err != nil {
							return fmt.Errorf("triage %s: %w", ref, err)
						}
						outcomes[i] = outcome
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}

				// Results are printed even when mailing fails so they are not lost.
				mailErrs := make([]error, len(outcomes))
				if email || len(emailTo) > 0 {
					for i, outcome := range outcomes {
						if err := a.EmailOutcome(cmd.Context(), outcome, emailTo); err != nil {
							mailErrs[i] = fmt.Errorf("email %s: %w", outcome.Reference, err)
						}
					}
				}
				mailErr := errors.Join(mailErrs...)

				if jsonOutput {
					payload := make([]api.TriageResponse, len(outcomes))
					for i, outcome := range outcomes {
						payload[i] = api.FromOutcome(outcome)
						if email || len(emailTo) > 0 {
							payload[i].Emailed = mailErrs[i] == nil
						}
						if mailErrs[i] != nil {
							payload[i].EmailError = mailErrs[i].Error()
						}
					}
					if err := writeJSON(cmd, payload); err != nil {
						return err
					}
					return mailErr
				}
				out := cmd.OutOrStdout()
				for i, outcome := range outcomes {
					if i > 0 {
						fmt.Fprintln(out)
					}
					printOutcome(out, outcome)
				}
				return mailErr
			})
		},
	}
	cmd.Flags().StringVar(&textPath, "text", "", "Persist this text file (or - for stdin) and triage it")
	cmd.Flags().BoolVar(&email, "email", false, "Email each result to mail.default_to")
	cmd.Flags().StringSliceVar(&emailTo, "email-to", nil, "Email each result to these recipients")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}
