package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// StyledRenderer prints lipgloss-styled progress lines and a summary panel.
type StyledRenderer struct {
	mu         sync.Mutex
	out        io.Writer
	styles     Styles
	projectDir string
	errors     []ErrorEvent
}

// NewStyledRenderer creates a styled renderer.
func NewStyledRenderer(cfg Config) *StyledRenderer {
	return &StyledRenderer{
		out:        cfg.Output,
		styles:     GetStyles(cfg.NoColor || DetectNoColor()),
		projectDir: cfg.ProjectDir,
	}
}

// Start implements Renderer.
func (r *StyledRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	header := "storyindex"
	if r.projectDir != "" {
		header += " " + r.styles.Dim.Render(r.projectDir)
	}
	_, _ = fmt.Fprintln(r.out, r.styles.Header.Render(header))
	return nil
}

// UpdateProgress implements Renderer.
func (r *StyledRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stage := r.styles.Stage.Render(fmt.Sprintf("%-10s", event.Stage.String()))
	if event.Total > 0 {
		_, _ = fmt.Fprintf(r.out, "  %s %s %s\n", stage,
			r.styles.Value.Render(fmt.Sprintf("%d/%d", event.Current, event.Total)), event.Message)
		return
	}
	if event.Message != "" {
		_, _ = fmt.Fprintf(r.out, "  %s %s\n", stage, event.Message)
	}
}

// AddError implements Renderer.
func (r *StyledRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	style, mark := r.styles.Error, "✗"
	if event.IsWarn {
		style, mark = r.styles.Warning, "!"
	}
	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "  %s %s %v\n", style.Render(mark), r.styles.Label.Render(event.File), event.Err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "  %s %v\n", style.Render(mark), event.Err)
}

// Complete implements Renderer.
func (r *StyledRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	row := func(label string, value any) {
		fmt.Fprintf(&b, "%s %s\n", r.styles.Label.Render(fmt.Sprintf("%-11s", label)), r.styles.Value.Render(fmt.Sprint(value)))
	}
	row("Entries", stats.Entries)
	row("Stories", stats.Stories)
	row("Docs", stats.Docs)
	row("Specifiers", stats.Specifiers)
	row("Duration", stats.Duration.Round(time.Millisecond))

	status := r.styles.Success.Render("✓ index ready")
	if stats.Errors > 0 {
		status = r.styles.Error.Render(fmt.Sprintf("✗ %d errors", stats.Errors))
	}
	b.WriteString(status)

	_, _ = fmt.Fprintln(r.out, r.styles.Panel.Render(b.String()))
}

// Stop implements Renderer.
func (r *StyledRenderer) Stop() error {
	return nil
}
