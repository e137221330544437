package ui

import (
	"encoding/json"
	"fmt"
	"io"
)

// StatusInfo contains generator health information.
type StatusInfo struct {
	State       string `json:"state"`
	Generation  uint64 `json:"generation"`
	Entries     int    `json:"entries"`
	Stories     int    `json:"stories"`
	Docs        int    `json:"docs"`
	LastError   string `json:"last_error,omitempty"`
	CachedFiles int    `json:"cached_files"`
	Extractions uint64 `json:"extractions"`
	CacheHits   uint64 `json:"cache_hits"`
	Watcher     string `json:"watcher"` // "fsnotify", "polling" or "off"
}

// StatusRenderer displays generator status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status"))

	_, _ = fmt.Fprintf(r.out, "  State:      %s\n", r.renderState(info.State))
	_, _ = fmt.Fprintf(r.out, "  Generation: %d\n", info.Generation)
	_, _ = fmt.Fprintf(r.out, "  Entries:    %d (%d stories, %d docs)\n", info.Entries, info.Stories, info.Docs)
	if info.LastError != "" {
		_, _ = fmt.Fprintf(r.out, "  Last error: %s\n", r.styles.Error.Render(info.LastError))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Cache:")
	_, _ = fmt.Fprintf(r.out, "    Files:       %d\n", info.CachedFiles)
	_, _ = fmt.Fprintf(r.out, "    Extractions: %d\n", info.Extractions)
	_, _ = fmt.Fprintf(r.out, "    Hits:        %d\n", info.CacheHits)

	if info.Watcher != "" {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintf(r.out, "  Watcher: %s\n", info.Watcher)
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// renderState formats a generator state with color.
func (r *StatusRenderer) renderState(state string) string {
	switch state {
	case "ready":
		return r.styles.Success.Render(state)
	case "computing":
		return r.styles.Warning.Render(state)
	case "idle":
		return r.styles.Dim.Render(state)
	default:
		return state
	}
}
