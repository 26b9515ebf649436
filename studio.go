package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabvar-studio/entities/table"
	"tabvar-studio/tools/compiler"
	"tabvar-studio/tools/config"
	"tabvar-studio/tools/logger"
	"tabvar-studio/tools/preview"
	"tabvar-studio/tools/remote"
	"tabvar-studio/tools/tkztab"
)

// Previewer renders LaTeX source into a PNG preview
type Previewer interface {
	Render(ctx context.Context, source string) (*preview.Image, error)
}

// Studio orchestrates loading, generating and previewing tables
type Studio struct {
	config  StudioConfig
	preview Previewer
	log     *logger.Logger
}

// NewStudio creates a new table studio. p may be nil when no previews
// are requested.
func NewStudio(config StudioConfig, p Previewer, log *logger.Logger) (*Studio, error) {
	// Set defaults
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if log == nil {
		log = logger.Default()
	}

	// Create output directory
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Studio{
		config:  config,
		preview: p,
		log:     log.WithPrefix("studio"),
	}, nil
}

// NewPreviewService builds the preview backend named by cfg.Backend
func NewPreviewService(cfg *config.Config, log *logger.Logger) (*preview.Service, error) {
	var r preview.Renderer
	switch cfg.Backend {
	case config.BackendRemote:
		raster, err := compiler.New("", cfg.Toolchain.PDFToPPM, cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create rasterizer: %w", err)
		}
		r = &preview.Remote{
			Client:     remote.NewClient(cfg.Remote.URL, cfg.Remote.Compiler, cfg.GetRemoteTimeout()),
			Rasterizer: raster,
			DPI:        cfg.Preview.DPI,
			Retries:    cfg.Remote.Retries,
		}
	default:
		comp, err := compiler.New(cfg.Toolchain.PDFLatex, cfg.Toolchain.PDFToPPM, cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create compiler: %w", err)
		}
		r = &preview.Local{Compiler: comp, DPI: cfg.Preview.DPI}
	}

	return preview.NewService(r, preview.Config{
		MaxConcurrent: int64(cfg.Preview.MaxConcurrent),
		Timeout:       cfg.GetPreviewTimeout(),
		MaxWidth:      cfg.Preview.MaxWidth,
	}, log), nil
}

// Load reads and validates a table file
func (s *Studio) Load(path string, normalize bool) (*table.Description, error) {
	d, err := table.Load(path)
	if err != nil {
		return nil, err
	}
	if normalize {
		d.Normalize()
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table %s: %w", path, err)
	}
	return d, nil
}

// Generate writes the LaTeX for a table and, when asked, its preview
func (s *Studio) Generate(ctx context.Context, req TableRequest) (*TableOutput, error) {
	startTime := time.Now()

	name := req.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(req.TablePath), filepath.Ext(req.TablePath))
	}
	name = sanitize(name)
	if name == "" {
		name = "table"
	}

	s.log.Info("Generating %s from %s", name, req.TablePath)

	d, err := s.Load(req.TablePath, req.Normalize)
	if err != nil {
		return nil, err
	}
	s.log.Debug("%d points, %d sign rows, kind %s", len(d.Points), len(d.Rows), d.Kind)

	out := &TableOutput{
		Name:   name,
		Dir:    filepath.Join(s.config.OutputDir, name),
		Source: tkztab.Generate(d, req.Mode),
	}
	if err := os.MkdirAll(out.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	out.TexPath = filepath.Join(out.Dir, name+".tex")
	if err := os.WriteFile(out.TexPath, []byte(out.Source), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out.TexPath, err)
	}
	s.log.Info("Wrote %s (%s)", out.TexPath, req.Mode)

	if req.Preview {
		if err := s.renderPreview(ctx, d, out); err != nil {
			return out, err
		}
	}

	s.log.Info("Done in %v", time.Since(startTime).Round(time.Millisecond))
	return out, nil
}

func (s *Studio) renderPreview(ctx context.Context, d *table.Description, out *TableOutput) error {
	if s.preview == nil {
		return errors.New("no preview backend configured")
	}

	done := s.log.Step("Rendering preview")
	defer done()

	// previews always compile the standalone document
	img, err := s.preview.Render(ctx, tkztab.Document(d))
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			s.log.Compilation(false, out.TexPath, ce.Errors)
		}
		return fmt.Errorf("preview failed: %w", err)
	}

	out.PNGPath = filepath.Join(out.Dir, out.Name+".png")
	if err := os.WriteFile(out.PNGPath, img.PNG, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out.PNGPath, err)
	}
	out.Width, out.Height = img.Width, img.Height
	s.log.Compilation(true, out.PNGPath, nil)
	return nil
}

// sanitize creates a safe filename from a string
func sanitize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	var safe strings.Builder
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			safe.WriteRune(c)
		}
	}
	out := safe.String()
	if len(out) > 50 {
		out = out[:50]
	}
	return out
}

// truncate shortens a string with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
