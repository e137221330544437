package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/storyindex/internal/config"
)

func TestDoctorCmd_JSON(t *testing.T) {
	isolate(t)
	t.Setenv("STORYINDEX_PORT", "0")

	// Given: a project with a src directory
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))

	// When: running doctor --json
	cmd := newDoctorCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json", dir})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	// Then: the report lists every check
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.NotEqual(t, "failed", report.Status)
	require.Len(t, report.Checks, 5)
	assert.Equal(t, "config", report.Checks[0].Name)
	assert.Equal(t, "pass", report.Checks[0].Status)
}

func TestDoctorCmd_FailsWithoutStories(t *testing.T) {
	isolate(t)
	t.Setenv("STORYINDEX_PORT", "0")

	// Given: an empty project
	dir := t.TempDir()
	writeFile(t, dir, config.ProjectFile, "version: 1\n")

	// When: running doctor
	cmd := newDoctorCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	err := cmd.ExecuteContext(context.Background())

	// Then: it fails and the report says why
	require.ErrorIs(t, err, errDoctorFailed)
	assert.Contains(t, buf.String(), "no stories configured")
}
