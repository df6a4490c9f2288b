// Package preview serves the rendered book locally and re-runs the build
// when source files change. The freeze cache keeps re-renders incremental:
// only touched documents re-execute.
package preview

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/bookbinder/internal/logfields"
)

// BuildFunc re-runs the book build. Invoked once at startup and after each
// debounced change notification.
type BuildFunc func(ctx context.Context) error

// Server watches the project and serves the output directory.
type Server struct {
	Root      string
	OutputDir string
	Addr      string
	Build     BuildFunc

	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler

	Debounce time.Duration
	logger   *slog.Logger
}

// NewServer constructs a preview server with defaults applied.
func NewServer(root, outputDir, addr string, build BuildFunc) *Server {
	return &Server{
		Root:      root,
		OutputDir: outputDir,
		Addr:      addr,
		Build:     build,
		Debounce:  300 * time.Millisecond,
		logger:    slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.logger = logger
	return s
}

// Run builds once, then serves and watches until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Build(ctx); err != nil {
		// Initial build failures are survivable: the watcher gives the
		// author a rebuild on the next save.
		s.logger.Error("Initial build failed", logfields.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := s.addWatches(watcher); err != nil {
		return err
	}
	go s.watchLoop(ctx, watcher)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.MetricsHandler != nil {
		router.Handle("/metrics", s.MetricsHandler)
	}
	router.Handle("/*", http.FileServer(http.Dir(s.OutputDir)))

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Preview serving", slog.String("addr", s.Addr), logfields.Path(s.OutputDir))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// addWatches registers the project tree, skipping the output directory and
// bookbinder's own working/cache directories.
func (s *Server) addWatches(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if s.ignored(path) {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}

func (s *Server) ignored(path string) bool {
	base := filepath.Base(path)
	if base == ".bookbinder" || strings.HasPrefix(base, ".git") {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	outAbs, err := filepath.Abs(s.OutputDir)
	if err != nil {
		return false
	}
	return abs == outAbs || strings.HasPrefix(abs, outAbs+string(os.PathSeparator))
}

// watchLoop coalesces change bursts and triggers rebuilds.
func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var timer *time.Timer
	rebuild := make(chan struct{}, 1)

	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(s.Debounce, func() {
			select {
			case rebuild <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if s.ignored(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			s.logger.Debug("Source change detected", logfields.Path(event.Name))
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Watcher error", logfields.Error(err))
		case <-rebuild:
			s.logger.Info("Rebuilding after source change")
			if err := s.Build(ctx); err != nil {
				s.logger.Error("Rebuild failed", logfields.Error(err))
			}
		}
	}
}
