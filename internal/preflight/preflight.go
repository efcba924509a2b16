package preflight

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"huddle/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Directory checks run first and in order; network checks fan out and are
// appended in a stable order once all of them finish.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckDirectoryAccess("Transcripts directory", cfg.Paths.TranscriptsDir))
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if strings.TrimSpace(cfg.Watch.InboxDir) != "" {
		results = append(results, CheckDirectoryAccess("Watch inbox", cfg.Watch.InboxDir))
	}

	checks := []func(context.Context) Result{
		func(ctx context.Context) Result { return CheckWorkerFromConfig(ctx, cfg) },
		func(ctx context.Context) Result { return CheckTranscriptionFromConfig(ctx, cfg) },
	}
	remote := make([]Result, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			remote[i] = check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	return append(results, remote...)
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
