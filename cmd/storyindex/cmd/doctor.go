package cmd

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/storyindex/internal/config"
	"github.com/Aman-CERP/storyindex/internal/preflight"
)

// errDoctorFailed is returned when a required check fails.
var errDoctorFailed = errors.New("system check failed")

func newDoctorCmd() *cobra.Command {
	var verbose, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor [dir]",
		Short: "Check the project and system before serving",
		Long: `Run diagnostics to ensure storyindex can serve the project.

Checks:
  - Configuration validity
  - Stories entries and their directories
  - File watching backend (fsnotify or polling)
  - File descriptor limit
  - Server address availability

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  # Run diagnostics
  storyindex doctor

  # JSON output for scripting
  storyindex doctor --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, args, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, args []string, verbose, jsonOutput bool) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	checker := preflight.New(
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(cmd.Context(), cfg)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			Status string                  `json:"status"`
			Checks []preflight.CheckResult `json:"checks"`
		}{checker.SummaryStatus(results), results}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errDoctorFailed
	}
	return nil
}
