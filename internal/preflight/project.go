package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/storyindex/internal/config"
)

// CheckConfig validates the merged configuration.
func (c *Checker) CheckConfig(cfg *config.Config) CheckResult {
	result := CheckResult{Name: "config", Required: true}
	if err := cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = "invalid"
		result.Details = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = "OK"
	if dir := cfg.Dir(); dir != "" {
		result.Details = "project directory: " + dir
	}
	return result
}

// CheckStories normalizes the stories entries and checks that each
// directory exists. Missing directories warn, as indexing skips them.
func (c *Checker) CheckStories(cfg *config.Config) CheckResult {
	result := CheckResult{Name: "stories", Required: true}

	specs, err := cfg.Specifiers("")
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	if len(specs) == 0 {
		result.Status = StatusFail
		result.Message = "no stories configured"
		result.Details = "Add a stories list to " + config.ProjectFile + " or set STORYINDEX_STORIES"
		return result
	}

	var missing, lines []string
	for _, s := range specs {
		lines = append(lines, s.ImportPathGlob)
		dir := filepath.Join(s.WorkingDir, filepath.FromSlash(s.Directory))
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			missing = append(missing, s.Directory)
		}
	}
	result.Details = strings.Join(lines, "\n")

	if len(missing) > 0 {
		result.Status = StatusWarn
		result.Message = "missing directories: " + strings.Join(missing, ", ")
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d specifier(s)", len(specs))
	return result
}

// CheckWatcher reports which file watching backend serve will use.
func (c *Checker) CheckWatcher(cfg *config.Config) CheckResult {
	result := CheckResult{Name: "watcher", Status: StatusPass}

	switch {
	case !cfg.Watch.Enabled:
		result.Message = "disabled"
	case cfg.Watch.ForcePolling:
		result.Message = "polling every " + cfg.Watch.PollInterval
	default:
		w, err := fsnotify.NewWatcher()
		if err != nil {
			result.Status = StatusWarn
			result.Message = "fsnotify unavailable, polling every " + cfg.Watch.PollInterval
			result.Details = err.Error()
			return result
		}
		_ = w.Close()
		result.Message = "fsnotify"
	}
	return result
}

// CheckAddress checks that the server address can be bound.
func (c *Checker) CheckAddress(ctx context.Context, addr string) CheckResult {
	result := CheckResult{Name: "address", Required: true}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		result.Status = StatusFail
		result.Message = addr + " unavailable"
		result.Details = err.Error()
		return result
	}
	_ = ln.Close()

	result.Status = StatusPass
	result.Message = addr
	return result
}
