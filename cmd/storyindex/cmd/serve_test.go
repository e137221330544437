package cmd

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/storyindex/internal/config"
)

// syncBuffer is a bytes.Buffer safe for one writer and one poller.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeCmd_ServesUntilCancelled(t *testing.T) {
	isolate(t)
	dir := indexProject(t)

	// Given: serve on a free port without watching
	cmd := newServeCmd()
	stderr := &syncBuffer{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"--port", "0", "--no-watch", "--plain", dir})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	// When: the server reports it is up and the context ends
	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "Serving story index")
	}, 10*time.Second, 20*time.Millisecond)
	cancel()

	// Then: it shuts down cleanly
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.Contains(t, stderr.String(), "/index.json")
}

func TestServeCmd_NoStories(t *testing.T) {
	isolate(t)

	// Given: a project without any stories
	dir := t.TempDir()
	writeFile(t, dir, config.ProjectFile, "version: 1\n")

	// When: serving
	cmd := newServeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--port", "0", dir})
	err := cmd.ExecuteContext(context.Background())

	// Then: it refuses to start
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stories configured")
}
