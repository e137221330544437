package index

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Aman-CERP/storyindex/internal/scanner"
)

// AutodocsMode controls automatic docs entries for story files.
type AutodocsMode string

const (
	// AutodocsOff never adds docs entries.
	AutodocsOff AutodocsMode = "false"
	// AutodocsOn adds a docs entry to every story file.
	AutodocsOn AutodocsMode = "true"
	// AutodocsTag adds a docs entry to story files tagged "autodocs".
	AutodocsTag AutodocsMode = "tag"
)

// ParseAutodocs parses "true", "false" or "tag". Empty means off.
func ParseAutodocs(s string) (AutodocsMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false":
		return AutodocsOff, nil
	case "true":
		return AutodocsOn, nil
	case "tag":
		return AutodocsTag, nil
	default:
		return AutodocsOff, fmt.Errorf("invalid autodocs mode %q: must be true, false or tag", s)
	}
}

// DocsOptions configures docs entries.
type DocsOptions struct {
	// DefaultName names autodocs entries and attached docs pages.
	DefaultName string
	// Autodocs selects when autodocs entries are generated.
	Autodocs AutodocsMode
}

// Options configures a Generator.
type Options struct {
	// StoriesV2Compatibility serves the legacy stories.json without docs.
	StoriesV2Compatibility bool

	// StoryStoreV7 enables full-store support. Indexers that require it
	// fail their files when disabled.
	StoryStoreV7 bool

	// Docs configures docs entries.
	Docs DocsOptions

	// Workers bounds parallel extraction (0 = NumCPU).
	Workers int

	// Scanner resolves specifiers to files (nil = default scanner).
	Scanner *scanner.Scanner
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		StoryStoreV7: true,
		Docs: DocsOptions{
			DefaultName: "Docs",
			Autodocs:    AutodocsOff,
		},
		Workers: runtime.NumCPU(),
	}
}

// WithDefaults fills zero values.
func (o Options) WithDefaults() Options {
	if o.Docs.DefaultName == "" {
		o.Docs.DefaultName = "Docs"
	}
	if o.Docs.Autodocs == "" {
		o.Docs.Autodocs = AutodocsOff
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}
