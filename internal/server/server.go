package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/internal/ui"
	"github.com/Aman-CERP/storyindex/internal/watcher"
	"github.com/Aman-CERP/storyindex/internal/wire"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = "127.0.0.1:6007"

	defaultRenderCacheSize  = 16
	defaultSubscriberBuffer = 8
	defaultShutdownTimeout  = 5 * time.Second
	defaultHeartbeat        = 30 * time.Second
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address for ListenAndServe.
	Addr string
	// DebounceWindow groups file changes before one invalidation is announced.
	DebounceWindow time.Duration
	// RenderCacheSize bounds cached encoded bodies.
	RenderCacheSize int
	// SubscriberBuffer is the per-subscriber SSE queue length.
	SubscriberBuffer int
	// Heartbeat is the interval of SSE keep-alive comments.
	Heartbeat time.Duration
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.RenderCacheSize <= 0 {
		o.RenderCacheSize = defaultRenderCacheSize
	}
	if o.SubscriberBuffer <= 0 {
		o.SubscriberBuffer = defaultSubscriberBuffer
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = defaultHeartbeat
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Server serves a Generator's index and change notifications.
// A Server serves once: after ListenAndServe returns or Close is called it
// cannot be restarted.
type Server struct {
	gen     *index.Generator
	coord   *index.Coordinator
	hub     *Hub
	renders *renderCache
	opts    Options
	logger  *slog.Logger
	handler http.Handler

	unsubscribe func()
	closeOnce   sync.Once
}

// New creates a server for gen. The generator should already be initialized.
func New(gen *index.Generator, opts Options) (*Server, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	opts = opts.withDefaults()

	renders, err := newRenderCache(opts.RenderCacheSize, gen.Options().StoryStoreV7)
	if err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}

	s := &Server{
		gen:     gen,
		coord:   index.NewCoordinator(gen, opts.DebounceWindow, opts.Logger),
		hub:     NewHub(opts.SubscriberBuffer, opts.Logger),
		renders: renders,
		opts:    opts,
		logger:  opts.Logger,
	}
	s.unsubscribe = s.coord.Subscribe(s.hub.Invalidated)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /index.json", s.handleIndex)
	mux.HandleFunc("GET /stories.json", s.handleStories)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /status", s.handleStatus)
	s.handler = chain(mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Coordinator returns the coordinator turning file events into invalidations.
func (s *Server) Coordinator() *index.Coordinator {
	return s.coord
}

// Hub returns the SSE hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Watch attaches the server to a pooled watcher over the specifier
// directories. The watcher is released when ctx ends or on Close.
func (s *Server) Watch(ctx context.Context, pool *watcher.Pool) error {
	if err := s.coord.Watch(pool); err != nil {
		return err
	}
	s.logger.Info("watching for changes",
		slog.String("watcher", s.coord.WatcherType()),
		slog.Int("specifiers", len(s.gen.Specifiers())))

	go func() {
		<-ctx.Done()
		s.coord.Close()
	}()
	return nil
}

// ListenAndServe listens on Options.Addr and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully: SSE
// streams are closed and in-flight requests get ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	<-errCh
	return nil
}

// Close stops change notifications and ends every SSE stream.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		s.coord.Close()
		s.hub.Close()
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveIndex(w, r, wire.FormatV4)
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	f := wire.FormatV3
	if s.gen.Options().StoriesV2Compatibility {
		f = wire.FormatV3Compat
	}
	s.serveIndex(w, r, f)
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request, f wire.Format) {
	snap, err := s.gen.GetIndex(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	out, err := s.renders.render(snap, f)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	w.Header().Set("ETag", out.etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == out.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out.body)
}

// writeFailure serves an indexing failure as plain text.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("index request failed",
		slog.String("path", r.URL.Path),
		slog.String("code", sierrors.GetCode(err)),
		slog.String("error", err.Error()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprint(w, sierrors.FormatForServer(err))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	_, events, cancel := s.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Status())
}

// Status reports generator, cache and watcher state without building.
func (s *Server) Status() ui.StatusInfo {
	stats := s.gen.CacheStats()
	info := ui.StatusInfo{
		State:       s.gen.State().String(),
		Generation:  s.gen.Generation(),
		CachedFiles: stats.Records,
		Extractions: uint64(stats.Extractions),
		CacheHits:   uint64(stats.Hits),
		Watcher:     s.coord.WatcherType(),
	}
	if snap := s.gen.Current(); snap != nil {
		info.Entries = snap.Len()
		info.Stories, info.Docs = snap.Counts()
	}
	if err := s.gen.LastError(); err != nil {
		info.LastError = sierrors.FormatForServer(err)
	}
	return info
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", slog.String("error", err.Error()))
	}
}
