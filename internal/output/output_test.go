package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("🔍", "Scanning stories...")

	// Then: output contains icon and message
	assert.Equal(t, "🔍 Scanning stories...\n", buf.String())
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Status("", "continued")
	assert.Equal(t, "   continued\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		plain bool
		write func(w *Writer)
		want  string
	}{
		{"success", false, func(w *Writer) { w.Successf("Created %s", "a.yaml") }, "✅ Created a.yaml"},
		{"warning", false, func(w *Writer) { w.Warning("watching disabled") }, "⚠️  watching disabled"},
		{"error", false, func(w *Writer) { w.Errorf("%d failed", 2) }, "❌ 2 failed"},
		{"plain success", true, func(w *Writer) { w.Success("done") }, "[ok] done"},
		{"plain warning", true, func(w *Writer) { w.Warningf("%s", "slow") }, "[warn] slow"},
		{"plain error", true, func(w *Writer) { w.Error("broken") }, "[error] broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer in the requested mode
			buf := &bytes.Buffer{}
			w := New(buf)
			if tt.plain {
				w = NewPlain(buf)
			}

			// When: writing one line
			tt.write(w)

			// Then: the marker precedes the message
			assert.Equal(t, tt.want+"\n", buf.String())
		})
	}
}

func TestWriter_Code_IndentsEachLine(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a multi-line block
	w.Code("GET /index.json\nGET /stories.json")

	// Then: each line is indented and the block is padded
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "  GET /index.json", lines[1])
	assert.Equal(t, "  GET /stories.json", lines[2])
	assert.Equal(t, "", lines[3])
}

func TestWriter_Newline(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Newline()
	assert.Equal(t, "\n", buf.String())
}
