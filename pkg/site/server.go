package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vanderheijden86/marktree/pkg/loader"
	"github.com/vanderheijden86/marktree/pkg/watcher"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	Addr       string
	ContentDir string
	Load       loader.Options
	LiveReload bool
	Debounce   time.Duration
	ForcePoll  bool
}

// Server builds the site, serves the output folder and rebuilds when the
// content changes.
type Server struct {
	opts    ServerOptions
	builder *Builder
	hub     *LiveReloadHub
	logger  *log.Logger

	mu      sync.Mutex // serializes rebuilds
	lastErr error
	builds  int
}

// NewServer returns a server around b.
func NewServer(opts ServerOptions, b *Builder) *Server {
	return &Server{
		opts:    opts,
		builder: b,
		hub:     NewLiveReloadHub(),
		logger:  log.New(io.Discard, "", 0),
	}
}

// SetLogger sets the logger for rebuilds and watcher warnings.
func (s *Server) SetLogger(logger *log.Logger) {
	s.logger = logger
	s.builder.SetLogger(logger)
}

// Hub returns the live reload hub.
func (s *Server) Hub() *LiveReloadHub {
	return s.hub
}

// Rebuild reloads the content folder and rebuilds the site. Browsers are
// told to reload after a successful build. A failed build leaves the
// previous output in place.
func (s *Server) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := loader.LoadDir(ctx, s.opts.ContentDir, s.opts.Load)
	if err == nil {
		_, err = s.builder.Build(ctx, c)
	}
	s.lastErr = err
	if err != nil {
		return err
	}
	s.builds++
	if s.opts.LiveReload {
		s.hub.Notify()
	}
	return nil
}

// LastError returns the error of the most recent build, if any.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Builds returns the number of successful builds.
func (s *Server) Builds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds
}

// Handler serves the output folder, plus the live reload endpoint when
// enabled.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	var files http.Handler = http.FileServer(http.Dir(s.builder.OutDir()))
	if s.opts.LiveReload {
		mux.Handle(EventsPath, s.hub.SSEHandler())
		files = liveReloadMiddleware(files)
	}
	mux.Handle("/", files)
	return mux
}

// Run builds once, then serves and watches until ctx is done. The first
// build must succeed; later failures are logged.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		return err
	}

	w, err := watcher.NewWatcher(s.opts.ContentDir,
		watcher.WithDebounceDuration(s.opts.Debounce),
		watcher.WithForcePoll(s.opts.ForcePoll),
		watcher.WithSkip(s.skipOutput()),
		watcher.WithOnChange(func() {
			if err := s.Rebuild(ctx); err != nil {
				s.logger.Printf("rebuild failed: %v", err)
				return
			}
			s.logger.Printf("rebuilt")
		}),
		watcher.WithOnError(func(err error) {
			s.logger.Printf("Warning: watcher: %v", err)
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watching %s: %w", s.opts.ContentDir, err)
	}
	defer w.Stop()
	defer s.hub.Stop()

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Printf("serving %s on http://%s", s.builder.OutDir(), ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		// Close SSE streams first so Shutdown does not wait on them.
		s.hub.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// skipOutput ignores the output folder when it lives inside the content
// folder, so a build does not trigger the next one.
func (s *Server) skipOutput() func(rel string, dir bool) bool {
	content, err1 := filepath.Abs(s.opts.ContentDir)
	out, err2 := filepath.Abs(s.builder.OutDir())
	if err1 != nil || err2 != nil {
		return func(string, bool) bool { return false }
	}
	rel, err := filepath.Rel(content, out)
	if err != nil || !filepath.IsLocal(rel) {
		return func(string, bool) bool { return false }
	}
	rel = filepath.ToSlash(rel)
	return func(p string, _ bool) bool {
		return p == rel || strings.HasPrefix(p, rel+"/")
	}
}
