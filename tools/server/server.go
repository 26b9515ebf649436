// Package server exposes table generation and LaTeX previews over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tabvar-studio/entities/table"
	"tabvar-studio/tools/compiler"
	"tabvar-studio/tools/logger"
	"tabvar-studio/tools/preview"
	"tabvar-studio/tools/tkztab"
)

// Previewer renders LaTeX source to a PNG preview
type Previewer interface {
	Render(ctx context.Context, source string) (*preview.Image, error)
}

// Options configures the server
type Options struct {
	Addr         string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the rendering proxy
type Server struct {
	opts    Options
	preview Previewer
	log     *logger.Logger
	mux     *http.ServeMux
}

// New creates a server. preview may be nil, in which case /api/render
// answers 503.
func New(opts Options, p Previewer, log *logger.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		opts:    opts,
		preview: p,
		log:     log.WithPrefix("server"),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/render", s.handleRender)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the HTTP handler with request logging applied
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// renderRequest is the body of /api/render: either raw LaTeX or a table
type renderRequest struct {
	Latex string          `json:"latex,omitempty"`
	Table json.RawMessage `json:"table,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	mode, ok := tkztab.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		s.fail(w, http.StatusBadRequest, "unknown mode %q", r.URL.Query().Get("mode"))
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		s.fail(w, http.StatusRequestEntityTooLarge, "%v", err)
		return
	}

	d, err := decodeTable(body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "%v", err)
		return
	}

	w.Header().Set("Content-Type", "text/x-tex; charset=utf-8")
	io.WriteString(w, tkztab.Generate(d, mode))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.preview == nil {
		s.fail(w, http.StatusServiceUnavailable, "preview backend not configured")
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		s.fail(w, http.StatusRequestEntityTooLarge, "%v", err)
		return
	}

	var req renderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}

	source := req.Latex
	if len(req.Table) > 0 {
		d, err := decodeTable(req.Table)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "%v", err)
			return
		}
		source = tkztab.Document(d)
	}
	if source == "" {
		s.fail(w, http.StatusBadRequest, "request needs either latex or table")
		return
	}

	img, err := s.preview.Render(r.Context(), source)
	if err != nil {
		var ce *compiler.CompileError
		switch {
		case errors.As(err, &ce):
			s.fail(w, http.StatusUnprocessableEntity, "%v", err)
		case errors.Is(err, preview.ErrTimeout):
			s.fail(w, http.StatusGatewayTimeout, "%v", err)
		case errors.Is(err, context.Canceled):
			// client went away; nothing useful to send
		default:
			s.log.Error("render failed: %v", err)
			s.fail(w, http.StatusBadGateway, "render failed")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
	w.Header().Set("X-Image-Width", strconv.Itoa(img.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(img.Height))
	w.Write(img.PNG)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "ok")
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("request body too large (limit %d bytes)", s.opts.MaxBodyBytes)
	}
	return body, nil
}

func decodeTable(data []byte) (*table.Description, error) {
	d, err := table.Decode(data, table.FormatJSON)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table: %w", err)
	}
	return d, nil
}

func (s *Server) fail(w http.ResponseWriter, status int, format string, args ...any) {
	http.Error(w, fmt.Sprintf(format, args...), status)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	z := s.log.Zap()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		z.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
