// Package cmd provides the CLI commands for storyindex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/config"
	"github.com/Aman-CERP/storyindex/internal/extract"
	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/internal/logging"
	"github.com/Aman-CERP/storyindex/internal/profiling"
	"github.com/Aman-CERP/storyindex/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the storyindex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storyindex",
		Short: "Story index server for component workshops",
		Long: `storyindex scans your story and docs files, builds the story index
and serves it over HTTP, re-indexing as files change.

Run 'storyindex serve' in your project directory to get started.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("storyindex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.storyindex/logs/")
	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startLogging installs the default logger at level, or at debug level with
// file output when --debug is set.
func startLogging(level string) error {
	cfg := logging.DefaultConfig()
	cfg.Level = level
	if debugMode {
		cfg = logging.DebugConfig()
	}

	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup

	if debugMode {
		slog.Info("Debug logging enabled",
			slog.String("log_file", cfg.FilePath),
			slog.String("version", version.Version))
	}
	return nil
}

func startProfiling(_ *cobra.Command, _ []string) error {
	if !profileOpts.Enabled() {
		return nil
	}
	s, err := profiling.Start(profileOpts)
	if err != nil {
		return err
	}
	profile = s
	return nil
}

// stopProfilingAndLogging stops profiling, writes the memory profile if
// requested and closes the log file.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// projectDir returns the explicit directory argument, or the project root
// found from the working directory.
func projectDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return cwd, nil
	}
	return root, nil
}

// newGenerator builds a generator over the configured stories with the
// built-in indexers.
func newGenerator(cfg *config.Config, logger *slog.Logger) (*index.Generator, error) {
	specs, err := cfg.Specifiers("")
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, sierrors.ConfigError("no stories configured", nil).
			WithSuggestion("Add a stories list to " + config.ProjectFile + " or set STORYINDEX_STORIES.")
	}
	opts, err := cfg.IndexOptions()
	if err != nil {
		return nil, err
	}
	return index.New(specs, extract.DefaultRegistry(), opts, logger)
}
