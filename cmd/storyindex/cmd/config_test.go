package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/storyindex/internal/config"
)

func TestConfigShow_DefaultsYAML(t *testing.T) {
	isolate(t)

	// Given: config show with --source defaults
	cmd := newConfigCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"show", "--source", "defaults"})

	// When: executing
	require.NoError(t, cmd.Execute())

	// Then: default values are printed as YAML
	out := buf.String()
	assert.Contains(t, out, "port: 6007")
	assert.Contains(t, out, "defaultName: Docs")
	assert.Contains(t, out, "storyStoreV7: true")
}

func TestConfigShow_MergedJSON(t *testing.T) {
	isolate(t)

	// Given: a project with one bare and one object specifier
	dir := t.TempDir()
	writeFile(t, dir, config.ProjectFile, `
stories:
  - ./src
  - directory: ./docs
    files: "*.mdx"
server:
  port: 7100
`)

	// When: showing the merged config as JSON
	cmd := newConfigCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"show", "--json", dir})
	require.NoError(t, cmd.Execute())

	// Then: file values appear and the bare entry stays a string
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	stories, ok := got["stories"].([]any)
	require.True(t, ok, "stories should be a list: %v", got)
	require.Len(t, stories, 2)
	assert.Equal(t, "./src", stories[0])
	assert.Equal(t, "./docs", stories[1].(map[string]any)["directory"])
	assert.Contains(t, buf.String(), "7100")
}

func TestConfigShow_InvalidSource(t *testing.T) {
	cmd := newConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "--source", "remote"})

	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source")
}

func TestConfigInit_CreatesFile(t *testing.T) {
	isolate(t)

	// Given: a project with a src directory and no config
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))

	// When: running config init
	cmd := newConfigCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"init", dir})
	require.NoError(t, cmd.Execute())

	// Then: the file exists and lists the discovered directory
	path := filepath.Join(dir, config.ProjectFile)
	assert.FileExists(t, path)
	assert.Contains(t, buf.String(), "Created")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.Len(t, cfg.Stories, 1)
	assert.Equal(t, "./src", cfg.Stories[0].Glob)
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	isolate(t)

	// Given: an existing project file
	dir := t.TempDir()
	writeFile(t, dir, config.ProjectFile, "version: 1\n")

	// When: running init without --force
	cmd := newConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", dir})
	err := cmd.Execute()

	// Then: it fails and leaves the file alone
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
	data, readErr := os.ReadFile(filepath.Join(dir, config.ProjectFile))
	require.NoError(t, readErr)
	assert.Equal(t, "version: 1\n", string(data))

	// And: --force overwrites it
	cmd = newConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", "--force", dir})
	require.NoError(t, cmd.Execute())
}

func TestConfigPath(t *testing.T) {
	isolate(t)

	cmd := newConfigCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"path"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), filepath.Join("storyindex", "config.yaml"))
}

func TestConfigInit_User(t *testing.T) {
	isolate(t)

	// When: running config init --user
	cmd := newConfigCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", "--user"})
	require.NoError(t, cmd.Execute())

	// Then: the user config exists
	assert.True(t, config.UserConfigExists())
}
