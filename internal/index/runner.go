package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/ui"
)

// Runner performs a one-shot index build and reports it through a renderer.
type Runner struct {
	renderer ui.Renderer
	logger   *slog.Logger
}

// RunResult is the outcome of Run.
type RunResult struct {
	// Snapshot is nil when the build failed.
	Snapshot *Snapshot
	Stats    ui.CompletionStats
}

// NewRunner creates a Runner.
func NewRunner(renderer ui.Renderer, logger *slog.Logger) (*Runner, error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{renderer: renderer, logger: logger}, nil
}

// Run initializes gen, builds its index and renders the outcome. Per-file
// failures and duplicate ids are rendered and returned alongside the result.
func (r *Runner) Run(ctx context.Context, gen *Generator) (*RunResult, error) {
	start := time.Now()
	if err := r.renderer.Start(ctx); err != nil {
		return nil, fmt.Errorf("start renderer: %w", err)
	}
	defer func() { _ = r.renderer.Stop() }()

	specs := gen.Specifiers()
	for i, s := range specs {
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageScanning,
			Current: i + 1,
			Total:   len(specs),
			Message: s.ImportPathGlob,
		})
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageExtracting, Message: "extracting entries"})
	if err := gen.Initialize(ctx); err != nil {
		r.renderer.AddError(ui.ErrorEvent{Err: err})
		return nil, err
	}

	snap, err := gen.GetIndex(ctx)
	result := &RunResult{
		Snapshot: snap,
		Stats: ui.CompletionStats{
			Specifiers: len(specs),
			Generation: gen.Generation(),
		},
	}

	if err != nil {
		result.Stats.Errors = r.reportFailure(err)
	} else {
		result.Stats.Entries = snap.Len()
		result.Stats.Stories, result.Stats.Docs = snap.Counts()
	}
	result.Stats.Duration = time.Since(start)

	r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageComplete, Message: "done"})
	r.renderer.Complete(result.Stats)

	r.logger.Info("index run finished",
		slog.Int("entries", result.Stats.Entries),
		slog.Int("errors", result.Stats.Errors),
		slog.Duration("duration", result.Stats.Duration))

	return result, err
}

// reportFailure renders err and returns the number of failures it holds.
func (r *Runner) reportFailure(err error) int {
	var agg *sierrors.AggregateError
	if errors.As(err, &agg) {
		for _, f := range agg.Failures {
			r.renderer.AddError(ui.ErrorEvent{File: f.Path, Err: errors.New(f.Message)})
		}
		return len(agg.Failures)
	}
	r.renderer.AddError(ui.ErrorEvent{Err: errors.New(sierrors.FormatForServer(err))})
	return 1
}
