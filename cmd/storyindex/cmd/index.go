package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/storyindex/internal/config"
	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/internal/ui"
	"github.com/Aman-CERP/storyindex/internal/wire"
)

type indexFlags struct {
	format string
	output string
	plain  bool
}

func newIndexCmd() *cobra.Command {
	var flags indexFlags

	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Build the story index once",
		Long: `Scan the configured stories, build the index and exit.

With --format pretty (the default) a summary is printed. With --format v4,
v3 or v3-compat the index JSON is written to stdout (or --output) and the
progress summary goes to stderr.

Exits non-zero when any file fails to index.`,
		Example: `  # Summary of the current project
  storyindex index

  # Write index.json for a static build
  storyindex index --format v4 -o storybook-static/index.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", "pretty", "Output format: pretty, v4, v3, v3-compat")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "Plain text summary output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, args []string, flags indexFlags) error {
	var format wire.Format
	pretty := flags.format == "pretty"
	if !pretty {
		f, err := wire.ParseFormat(flags.format)
		if err != nil {
			return err
		}
		format = f
	}

	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if err := startLogging("warn"); err != nil {
		return err
	}

	gen, err := newGenerator(cfg, nil)
	if err != nil {
		return err
	}

	summaryOut := cmd.OutOrStdout()
	if !pretty {
		summaryOut = cmd.ErrOrStderr()
	}
	renderer := ui.NewRenderer(ui.NewConfig(summaryOut,
		ui.WithForcePlain(flags.plain),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithProjectDir(cfg.Dir())))
	runner, err := index.NewRunner(renderer, nil)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, gen)
	if err != nil {
		return err
	}
	if pretty {
		return nil
	}

	body, err := wire.Encode(result.Snapshot, format, gen.Options().StoryStoreV7)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), flags.output, append(body, '\n'))
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
