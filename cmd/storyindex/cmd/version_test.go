package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/storyindex/pkg/version"
)

func TestVersionCmd_DefaultOutput(t *testing.T) {
	// Given: a version command
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	// When: executing without flags
	err := cmd.Execute()

	// Then: it should output version string
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "storyindex")
	assert.Contains(t, output, version.Version)
	assert.Contains(t, output, "commit")
	assert.Contains(t, output, "index formats: v4, v3, v3-compat")
}

func TestVersionCmd_ShortOutput(t *testing.T) {
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--short"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version.Version+" v4", strings.TrimSpace(buf.String()))
}

func TestVersionCmd_JSONAndShortConflict(t *testing.T) {
	cmd := newVersionCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--json", "--short"})

	assert.Error(t, cmd.Execute())
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	// Given: a version command with --json flag
	cmd := newVersionCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--json"})

	// When: executing with --json
	require.NoError(t, cmd.Execute())

	// Then: it should output valid JSON with all fields
	var info map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info), "Output should be valid JSON")

	assert.Equal(t, version.Version, info["version"])
	for _, key := range []string{"commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, info, key)
	}
	assert.EqualValues(t, version.IndexFormat, info["index_format"])
	assert.Equal(t, []any{"v4", "v3", "v3-compat"}, info["formats"])
}

func TestVersionCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	rootCmd := NewRootCmd()

	// When: looking for version subcommand
	versionCmd, _, err := rootCmd.Find([]string{"version"})

	// Then: it should be found
	require.NoError(t, err)
	assert.Equal(t, "version", versionCmd.Name())
}
