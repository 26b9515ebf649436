// Package preview turns LaTeX source into PNG previews through a local or
// remote toolchain.
package preview

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"tabvar-studio/tools/compiler"
	"tabvar-studio/tools/logger"
	"tabvar-studio/tools/remote"
)

// ErrTimeout is returned when a render exceeds its deadline
var ErrTimeout = errors.New("render timed out")

// Image is a rendered preview
type Image struct {
	PNG    []byte
	Width  int
	Height int
}

// Renderer compiles LaTeX source into a PNG image
type Renderer interface {
	Render(ctx context.Context, source string) ([]byte, error)
}

// Local renders with pdflatex and pdftoppm on this machine
type Local struct {
	Compiler *compiler.Compiler
	DPI      int
}

// Render implements Renderer
func (l *Local) Render(ctx context.Context, source string) ([]byte, error) {
	return l.Compiler.CompileToPNG(ctx, source, l.DPI)
}

// Remote compiles through the remote API and rasterizes locally
type Remote struct {
	Client     *remote.Client
	Rasterizer *compiler.Compiler
	DPI        int
	Retries    int
}

// Render implements Renderer
func (r *Remote) Render(ctx context.Context, source string) ([]byte, error) {
	pdf, err := r.Client.CompileWithRetry(ctx, source, r.Retries)
	if err != nil {
		var statusErr *remote.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, &compiler.CompileError{Errors: []string{statusErr.Message}}
		}
		return nil, err
	}
	return r.Rasterizer.Rasterize(ctx, pdf, r.DPI)
}

// Config tunes a Service
type Config struct {
	MaxConcurrent int64         // renders running at once
	Timeout       time.Duration // per render
	MaxWidth      int           // wider previews are scaled down; 0 keeps size
}

// Service bounds and de-duplicates renders
type Service struct {
	renderer Renderer
	cfg      Config
	sem      *semaphore.Weighted
	group    singleflight.Group
	log      *logger.Logger
}

// NewService wraps a renderer
func NewService(r Renderer, cfg Config, log *logger.Logger) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		renderer: r,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		log:      log.WithPrefix("preview"),
	}
}

// Render produces a preview. Concurrent calls with identical source share
// one compilation.
func (s *Service) Render(ctx context.Context, source string) (*Image, error) {
	key := sourceKey(source)
	ch := s.group.DoChan(key, func() (any, error) {
		// detached from any single caller so one cancellation
		// does not fail the others waiting on the same key
		renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()
		return s.render(renderCtx, key, source)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug("shared render %s", key[:12])
		}
		return res.Val.(*Image), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) render(ctx context.Context, key, source string) (*Image, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for a render slot", ErrTimeout)
	}
	defer s.sem.Release(1)

	start := time.Now()
	raw, err := s.renderer.Render(ctx, source)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrTimeout, s.cfg.Timeout)
		}
		return nil, err
	}

	img, err := Fit(raw, s.cfg.MaxWidth)
	if err != nil {
		return nil, err
	}
	s.log.Debug("rendered %s (%dx%d) in %v", key[:12], img.Width, img.Height, time.Since(start).Round(time.Millisecond))
	return img, nil
}

func sourceKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Fit decodes a PNG and scales it down to maxWidth, keeping the aspect
// ratio. Images already narrow enough are returned as-is.
func Fit(raw []byte, maxWidth int) (*Image, error) {
	src, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode preview: %w", err)
	}
	b := src.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return &Image{PNG: raw, Width: b.Dx(), Height: b.Dy()}, nil
	}

	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return &Image{PNG: buf.Bytes(), Width: maxWidth, Height: h}, nil
}
