package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/storyindex/internal/config"
	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/internal/output"
	"github.com/Aman-CERP/storyindex/internal/server"
	"github.com/Aman-CERP/storyindex/internal/ui"
	"github.com/Aman-CERP/storyindex/internal/watcher"
)

type serveFlags struct {
	host    string
	port    int
	noWatch bool
	plain   bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the story index over HTTP",
		Long: `Build the story index and serve it, re-indexing when story files change.

Endpoints:
  GET /index.json    v4 index
  GET /stories.json  v3 index
  GET /events        server-sent INDEX_INVALIDATED notifications
  GET /status        index status

Indexing failures are served as HTTP 500 with a plain-text list of files.`,
		Example: `  # Serve the project in the current directory
  storyindex serve

  # Serve on all interfaces without watching
  storyindex serve --host 0.0.0.0 --no-watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "Listen port (overrides server.port)")
	cmd.Flags().BoolVar(&flags.noWatch, "no-watch", false, "Do not watch for file changes")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "Plain text progress output")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, args []string, flags serveFlags) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if flags.host != "" {
		cfg.Server.Host = flags.host
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if flags.noWatch {
		cfg.Watch.Enabled = false
	}

	if err := startLogging(cfg.Server.LogLevel); err != nil {
		return err
	}
	logger := slog.Default()

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.ErrOrStderr(),
		ui.WithForcePlain(flags.plain),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithProjectDir(cfg.Dir())))
	runner, err := index.NewRunner(renderer, logger)
	if err != nil {
		return err
	}
	// Per-file failures are served as 500s until fixed; anything that stops
	// the first scan is not.
	if result, err := runner.Run(ctx, gen); result == nil {
		return err
	}

	srv, err := server.New(gen, server.Options{
		Addr:            cfg.Address(),
		DebounceWindow:  cfg.DebounceWindow(),
		RenderCacheSize: cfg.Performance.RenderCacheSize,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	out := output.New(cmd.ErrOrStderr())
	if flags.plain {
		out = output.NewPlain(cmd.ErrOrStderr())
	}

	if cfg.Watch.Enabled {
		pool := watcher.NewPool(cfg.WatchOptions(), logger)
		defer pool.Close()
		if err := srv.Watch(ctx, pool); err != nil {
			logger.Warn("file watching unavailable, serving a static index",
				slog.String("error", err.Error()))
			out.Warningf("File watching unavailable: %v", err)
		}
	}

	base := "http://" + cfg.Address()
	out.Successf("Serving story index at %s", base)
	out.Code(fmt.Sprintf("%s/index.json\n%s/stories.json\n%s/events", base, base, base))
	return srv.ListenAndServe(ctx)
}
