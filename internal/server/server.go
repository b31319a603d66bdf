package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/f4ah6o/fileserve-go/internal/config"
	"github.com/f4ah6o/fileserve-go/internal/resolver"
)

// Server owns the HTTP server for one configured root.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	root   string
	http   *http.Server
}

// New builds a Server from a validated configuration.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	res, err := resolver.New(cfg.Root)
	if err != nil {
		return nil, err
	}

	handler := NewHandler(res, logger, Options{
		StrictMethods: cfg.StrictMethods,
		Readme:        cfg.Readme,
	})

	return &Server{
		cfg:    cfg,
		logger: logger,
		root:   res.Root(),
		http: &http.Server{
			Handler:           logRequests(handler, logger),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}, nil
}

// Root returns the canonical directory being served.
func (s *Server) Root() string {
	return s.root
}

// Handler returns the request handler, including request logging.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Listen opens the configured TCP listener.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down,
// giving in-flight requests up to ShutdownTimeout to finish. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	s.logger.Info("serving", "root", s.root, "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() {
		errc <- s.http.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	err := s.shutdown()
	<-errc
	return err
}

func (s *Server) shutdown() error {
	if s.cfg.ShutdownTimeout <= 0 {
		return s.http.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.http.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// statusRecorder captures the status and size of a response for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// ReadFrom hands copies to the wrapped writer so its ReadFrom is still used.
func (s *statusRecorder) ReadFrom(r io.Reader) (int64, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := io.Copy(s.ResponseWriter, r)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// logRequests logs one line per request.
func logRequests(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		attrs := []any{"method", r.Method, "path", r.URL.Path}
		if rng := r.Header.Get("Range"); rng != "" {
			attrs = append(attrs, "range", rng)
		}
		attrs = append(attrs,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
		logger.Info("request", attrs...)
	})
}
