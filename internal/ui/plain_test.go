package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: updating progress
	r.UpdateProgress(ProgressEvent{
		Stage:   StageScanning,
		Current: 1,
		Total:   2,
		Message: "./src/**/*.stories.tsx",
	})

	// Then: output is correctly formatted
	assert.Equal(t, "[SCAN] 1/2 - ./src/**/*.stories.tsx\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_NoANSICodes(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: rendering progress through all stages
	for _, stage := range []Stage{StageScanning, StageExtracting, StageComplete} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Message: "working"})
	}

	// Then: output contains no ANSI escape codes
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_UpdateProgress_EmptyEventPrintsNothing(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageExtracting})

	assert.Empty(t, buf.String())
}

func TestPlainRenderer_AddError(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: adding an error and a warning
	r.AddError(ErrorEvent{File: "./src/A.stories.tsx", Err: errors.New("boom")})
	r.AddError(ErrorEvent{Err: errors.New("slow"), IsWarn: true})

	// Then: both are printed and recorded
	assert.Contains(t, buf.String(), "ERROR: ./src/A.stories.tsx: boom\n")
	assert.Contains(t, buf.String(), "WARN: slow\n")
	assert.Len(t, r.Errors(), 2)
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))
	require.NoError(t, r.Start(context.Background()))

	// When: completing with errors
	r.Complete(CompletionStats{
		Specifiers: 2,
		Entries:    5,
		Stories:    4,
		Docs:       1,
		Duration:   1500 * time.Millisecond,
		Errors:     1,
	})
	require.NoError(t, r.Stop())

	// Then: the summary line mentions every count
	assert.Equal(t, "Complete: 5 entries (4 stories, 1 docs) from 2 specifiers in 1.5s (1 errors)\n", buf.String())
}
