package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStage_StringAndIcon(t *testing.T) {
	tests := []struct {
		stage Stage
		name  string
		icon  string
	}{
		{StageScanning, "Scanning", "SCAN"},
		{StageExtracting, "Extracting", "INDEX"},
		{StageComplete, "Complete", "DONE"},
		{Stage(42), "Unknown", "???"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.stage.String())
			assert.Equal(t, tt.icon, tt.stage.Icon())
		})
	}
}

func TestNewRenderer_NonTTYIsPlain(t *testing.T) {
	// Given: a buffer, which is never a terminal
	buf := &bytes.Buffer{}

	// When: creating a renderer
	r := NewRenderer(NewConfig(buf))

	// Then: the plain renderer is chosen
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestNewRenderer_ForcePlain(t *testing.T) {
	r := NewRenderer(NewConfig(&bytes.Buffer{}, WithForcePlain(true)))

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestIsTTY_Nil(t *testing.T) {
	assert.False(t, IsTTY(nil))
}

func TestDetectCI(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")

	assert.True(t, DetectCI())
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	assert.True(t, DetectNoColor())
}
