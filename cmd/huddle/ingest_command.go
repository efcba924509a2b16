package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"huddle/internal/app"
	"huddle/internal/config"
	"huddle/internal/transcript"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var textMode bool
	var source string

	cmd := &cobra.Command{
		Use:   "ingest [audio-file | -]",
		Short: "Transcribe audio (or store text) as a new transcript",
		Long: "Transcribe an audio file and persist the transcript. With --text the input is\n" +
			"stored as-is without calling a transcription backend. Use - to read stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, label, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			if strings.TrimSpace(source) != "" {
				label = strings.TrimSpace(source)
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				var ref transcript.Reference
				if textMode {
					ref, err = a.IngestText(cmd.Context(), string(data), label)
				} else {
					ref, err = a.IngestAudio(cmd.Context(), data, label)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ref)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&textMode, "text", false, "Treat the input as transcript text instead of audio")
	cmd.Flags().StringVar(&source, "source", "", "Label stored with the transcript (defaults to the file name)")
	return cmd
}

// readInput loads path, or stdin when path is "-". The returned label is the
// base file name, or "stdin".
func readInput(cmd *cobra.Command, path string) ([]byte, string, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, "stdin", nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return nil, "", fmt.Errorf("inspect %q: %w", expanded, err)
	}
	if info.IsDir() {
		return nil, "", errors.New(expanded + " is a directory")
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %w", expanded, err)
	}
	return data, filepath.Base(expanded), nil
}
