package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/internal/specifier"
	"github.com/Aman-CERP/storyindex/internal/watcher"
)

// ProjectFile is the project configuration file name. ".storyindex.yml" is
// accepted as a fallback.
const ProjectFile = ".storyindex.yaml"

// Config represents the complete storyindex configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Stories     []specifier.Raw   `yaml:"stories" json:"stories"`
	Features    FeaturesConfig    `yaml:"features" json:"features"`
	Docs        DocsConfig        `yaml:"docs" json:"docs"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Watch       WatchConfig       `yaml:"watch" json:"watch"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// dir is the directory the project file was found in, or the directory
	// passed to Load. Relative stories entries resolve against it.
	dir string
}

// FeaturesConfig toggles compatibility behavior.
type FeaturesConfig struct {
	// StoriesV2Compatibility serves stories.json without docs entries.
	StoriesV2Compatibility bool `yaml:"storiesV2Compatibility" json:"storiesV2Compatibility"`

	// StoryStoreV7 enables indexers that need the full store (MDX).
	StoryStoreV7 bool `yaml:"storyStoreV7" json:"storyStoreV7"`
}

// DocsConfig configures docs entries.
type DocsConfig struct {
	DefaultName string `yaml:"defaultName" json:"defaultName"`

	// Autodocs is "true", "false" or "tag".
	Autodocs string `yaml:"autodocs" json:"autodocs"`
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Debounce is the coalescing window, as a Go duration string.
	Debounce string `yaml:"debounce" json:"debounce"`

	// PollInterval applies when fsnotify is unavailable or ForcePolling is set.
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`

	ForcePolling bool     `yaml:"force_polling" json:"force_polling"`
	IgnoreDirs   []string `yaml:"ignore_dirs,omitempty" json:"ignore_dirs,omitempty"`
}

// PerformanceConfig bounds resource usage.
type PerformanceConfig struct {
	IndexWorkers    int `yaml:"index_workers" json:"index_workers"`
	RenderCacheSize int `yaml:"render_cache_size" json:"render_cache_size"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Stories: []specifier.Raw{},
		Features: FeaturesConfig{
			StoriesV2Compatibility: false,
			StoryStoreV7:           true,
		},
		Docs: DocsConfig{
			DefaultName: "Docs",
			Autodocs:    string(index.AutodocsOff),
		},
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     6007,
			LogLevel: "info",
		},
		Watch: WatchConfig{
			Enabled:      true,
			Debounce:     watcher.DefaultCoalesceWindow.String(),
			PollInterval: "2s",
		},
		Performance: PerformanceConfig{
			IndexWorkers:    runtime.NumCPU(),
			RenderCacheSize: 16,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/storyindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/storyindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "storyindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "storyindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "storyindex", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/storyindex/config.yaml)
//  3. Project config (.storyindex.yaml in dir)
//  4. Environment variables (STORYINDEX_*)
//
// When no stories are configured anywhere, common story directories under
// dir are used.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	cfg := NewConfig()
	cfg.dir = absDir

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(absDir); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if len(cfg.Stories) == 0 {
		for _, d := range DiscoverStoryDirs(absDir) {
			cfg.Stories = append(cfg.Stories, specifier.Raw{Glob: "./" + d})
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dir returns the directory relative stories entries resolve against.
func (c *Config) Dir() string {
	return c.dir
}

// loadFromFile loads .storyindex.yaml, falling back to .storyindex.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectFile, ".storyindex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path over the current values. Keys absent from the file
// keep their value; a stories list replaces the previous one.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	parsed := *c
	parsed.Stories = nil
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return sierrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	if parsed.Stories == nil {
		parsed.Stories = c.Stories
	}
	*c = parsed
	return nil
}

// applyEnvOverrides applies STORYINDEX_* environment variable overrides.
// Unparsable values are reported rather than ignored.
func (c *Config) applyEnvOverrides() error {
	var problems []string
	boolVar := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %q is not a boolean", name, v))
				return
			}
			*dst = b
		}
	}
	intVar := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}
	stringVar := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// Comma separated list of bare specifiers
	if v := os.Getenv("STORYINDEX_STORIES"); v != "" {
		var stories []specifier.Raw
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				stories = append(stories, specifier.Raw{Glob: s})
			}
		}
		c.Stories = stories
	}

	boolVar("STORYINDEX_STORIES_V2_COMPATIBILITY", &c.Features.StoriesV2Compatibility)
	boolVar("STORYINDEX_STORY_STORE_V7", &c.Features.StoryStoreV7)
	stringVar("STORYINDEX_DOCS_DEFAULT_NAME", &c.Docs.DefaultName)
	stringVar("STORYINDEX_AUTODOCS", &c.Docs.Autodocs)
	stringVar("STORYINDEX_HOST", &c.Server.Host)
	intVar("STORYINDEX_PORT", &c.Server.Port)
	stringVar("STORYINDEX_LOG_LEVEL", &c.Server.LogLevel)
	boolVar("STORYINDEX_WATCH", &c.Watch.Enabled)
	stringVar("STORYINDEX_WATCH_DEBOUNCE", &c.Watch.Debounce)
	stringVar("STORYINDEX_POLL_INTERVAL", &c.Watch.PollInterval)
	boolVar("STORYINDEX_FORCE_POLLING", &c.Watch.ForcePolling)
	intVar("STORYINDEX_INDEX_WORKERS", &c.Performance.IndexWorkers)
	intVar("STORYINDEX_RENDER_CACHE_SIZE", &c.Performance.RenderCacheSize)

	if len(problems) > 0 {
		return sierrors.ConfigError("invalid environment overrides: "+strings.Join(problems, "; "), nil)
	}
	return nil
}

// Validate checks every section and reports all violations at once.
func (c *Config) Validate() error {
	var problems []string

	for i, raw := range c.Stories {
		if raw.Glob == "" && raw.Directory == "" {
			problems = append(problems, fmt.Sprintf("stories[%d]: directory is required", i))
		}
	}

	if strings.TrimSpace(c.Docs.DefaultName) == "" {
		problems = append(problems, "docs.defaultName must not be empty")
	}
	if _, err := index.ParseAutodocs(c.Docs.Autodocs); err != nil {
		problems = append(problems, "docs.autodocs must be 'true', 'false' or 'tag', got "+c.Docs.Autodocs)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		problems = append(problems, fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel))
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
		problems = append(problems, fmt.Sprintf("watch.debounce must be a positive duration, got %q", c.Watch.Debounce))
	}
	if d, err := time.ParseDuration(c.Watch.PollInterval); err != nil || d <= 0 {
		problems = append(problems, fmt.Sprintf("watch.poll_interval must be a positive duration, got %q", c.Watch.PollInterval))
	}

	if c.Performance.IndexWorkers < 0 {
		problems = append(problems, fmt.Sprintf("performance.index_workers must be non-negative, got %d", c.Performance.IndexWorkers))
	}
	if c.Performance.RenderCacheSize <= 0 {
		problems = append(problems, fmt.Sprintf("performance.render_cache_size must be positive, got %d", c.Performance.RenderCacheSize))
	}

	if len(problems) > 0 {
		return sierrors.ConfigError("invalid configuration: "+strings.Join(problems, "; "), nil).
			WithSuggestion("Fix the listed keys in " + ProjectFile + " or the matching STORYINDEX_* variables.")
	}
	return nil
}

// Specifiers normalizes the stories entries. workingDir is the root import
// paths are relative to; empty means the config directory.
func (c *Config) Specifiers(workingDir string) ([]*specifier.Specifier, error) {
	if workingDir == "" {
		workingDir = c.dir
	}
	return specifier.NormalizeAll(c.Stories, specifier.Context{
		ConfigDir:  c.dir,
		WorkingDir: workingDir,
	})
}

// IndexOptions converts the features, docs and performance sections.
func (c *Config) IndexOptions() (index.Options, error) {
	mode, err := index.ParseAutodocs(c.Docs.Autodocs)
	if err != nil {
		return index.Options{}, sierrors.ConfigError("invalid docs.autodocs", err)
	}
	return index.Options{
		StoriesV2Compatibility: c.Features.StoriesV2Compatibility,
		StoryStoreV7:           c.Features.StoryStoreV7,
		Docs: index.DocsOptions{
			DefaultName: c.Docs.DefaultName,
			Autodocs:    mode,
		},
		Workers: c.Performance.IndexWorkers,
	}.WithDefaults(), nil
}

// WatchOptions converts the watch section. Validate has already checked
// the durations.
func (c *Config) WatchOptions() watcher.Options {
	interval, _ := time.ParseDuration(c.Watch.PollInterval)
	return watcher.Options{
		PollInterval: interval,
		IgnoreDirs:   c.Watch.IgnoreDirs,
		ForcePolling: c.Watch.ForcePolling,
	}.WithDefaults()
}

// DebounceWindow returns the coalescing window.
func (c *Config) DebounceWindow() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return watcher.DefaultCoalesceWindow
	}
	return d
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or a project config file by walking up the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ProjectFile)) ||
			fileExists(filepath.Join(currentDir, ".storyindex.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// DiscoverStoryDirs returns the common story directories present in dir,
// as slash paths relative to it.
func DiscoverStoryDirs(dir string) []string {
	candidates := []string{"src", "stories", "components", "packages"}
	var found []string
	for _, c := range candidates {
		if dirExists(filepath.Join(dir, c)) {
			found = append(found, c)
		}
	}
	return found
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
