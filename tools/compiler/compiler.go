package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// waitDelay bounds how long a killed process may hold its output pipes
const waitDelay = 2 * time.Second

// DefaultDPI is the preview resolution used when Options.DPI is zero
const DefaultDPI = 150

// Options holds optional compilation settings
type Options struct {
	DPI     int    // pdftoppm -r
	GenPNG  bool   // rasterize the PDF after compiling
	SubDir  string // subdirectory within outputDir for this compilation
	Scratch bool   // compile in a fresh job directory that is removed afterwards
}

// DefaultOptions returns options that produce both PDF and PNG
func DefaultOptions() Options {
	return Options{
		DPI:    DefaultDPI,
		GenPNG: true,
	}
}

// Result holds compilation output
type Result struct {
	Success  bool
	PDFPath  string
	PNGPath  string
	Errors   []string
	Warnings []string
	Stdout   string
	Stderr   string

	// PNG holds the image bytes when Options.Scratch is set, since the
	// job directory is gone by the time the caller sees the result.
	PNG []byte
}

// CompileError reports a LaTeX run that finished but failed
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	if len(e.Errors) == 0 {
		return "compilation failed"
	}
	return "compilation failed: " + strings.Join(e.Errors, "; ")
}

// Compiler wraps the external pdflatex and pdftoppm tools
type Compiler struct {
	latexPath  string // absolute path to pdflatex
	rasterPath string // absolute path to pdftoppm
	outputDir  string // base output directory
}

// New creates a new compiler wrapper.
// Executables may be bare names looked up in PATH, or relative/absolute paths.
// An empty latexPath gives a rasterize-only compiler.
func New(latexPath, rasterPath, outputDir string) (*Compiler, error) {
	var absLatex string
	if latexPath != "" {
		var err error
		absLatex, err = resolveExecutable(latexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latex compiler: %w", err)
		}
	}

	absRaster, err := resolveExecutable(rasterPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rasterizer: %w", err)
	}

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	return &Compiler{
		latexPath:  absLatex,
		rasterPath: absRaster,
		outputDir:  absOutputDir,
	}, nil
}

func resolveExecutable(path string) (string, error) {
	if !strings.ContainsRune(path, os.PathSeparator) && !strings.Contains(path, "/") {
		return exec.LookPath(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return "", fmt.Errorf("not found at: %s", abs)
	}
	return abs, nil
}

// Compile compiles LaTeX source with default options (PDF and PNG)
func (c *Compiler) Compile(ctx context.Context, source string, outputName string) (*Result, error) {
	return c.CompileWithOptions(ctx, source, outputName, DefaultOptions())
}

// getWorkDir returns the working directory for compilation.
// Scratch jobs get a unique directory under outputDir.
func (c *Compiler) getWorkDir(opts Options) (string, error) {
	workDir := c.outputDir
	switch {
	case opts.Scratch:
		workDir = filepath.Join(c.outputDir, ".jobs", uuid.NewString())
	case opts.SubDir != "":
		workDir = filepath.Join(c.outputDir, opts.SubDir)
	}

	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	return workDir, nil
}

// CompileWithOptions compiles LaTeX source with the specified options
func (c *Compiler) CompileWithOptions(ctx context.Context, source string, outputName string, opts Options) (*Result, error) {
	if c.latexPath == "" {
		return nil, errors.New("no latex compiler configured")
	}

	workDir, err := c.getWorkDir(opts)
	if err != nil {
		return nil, err
	}
	if opts.Scratch {
		defer os.RemoveAll(workDir)
	}

	inputPath := filepath.Join(workDir, outputName+".tex")
	if err := os.WriteFile(inputPath, []byte(source), 0644); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}

	args := []string{
		"-interaction=nonstopmode",
		"-halt-on-error",
		outputName + ".tex",
	}

	stdout, stderr, err := c.run(ctx, workDir, c.latexPath, args)

	result := &Result{
		Stdout: stdout,
		Stderr: stderr,
	}
	result.Errors, result.Warnings = parseLog(stdout + "\n" + stderr)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("latex interrupted: %w", ctxErr)
		}
		result.Success = false
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, err.Error())
		}
		return result, nil
	}

	pdfPath := filepath.Join(workDir, outputName+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		result.Errors = append(result.Errors, "no PDF output generated")
		return result, nil
	}
	result.PDFPath = pdfPath

	if opts.GenPNG {
		pngPath, err := c.rasterize(ctx, workDir, outputName, opts.DPI)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("rasterizer interrupted: %w", ctxErr)
			}
			result.Errors = append(result.Errors, err.Error())
			return result, nil
		}
		result.PNGPath = pngPath

		if opts.Scratch {
			png, err := os.ReadFile(pngPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read PNG: %w", err)
			}
			result.PNG = png
		}
	}

	result.Success = true
	if opts.Scratch {
		// paths point into a directory removed on return
		result.PDFPath, result.PNGPath = "", ""
	}
	return result, nil
}

func (c *Compiler) rasterize(ctx context.Context, workDir, outputName string, dpi int) (string, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	args := []string{
		"-png",
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		outputName + ".pdf",
		outputName,
	}
	_, stderr, err := c.run(ctx, workDir, c.rasterPath, args)
	if err != nil {
		return "", fmt.Errorf("rasterize error: %s", strings.TrimSpace(stderr))
	}

	pngPath := filepath.Join(workDir, outputName+".png")
	if _, err := os.Stat(pngPath); err != nil {
		return "", fmt.Errorf("no PNG output generated")
	}
	return pngPath, nil
}

func (c *Compiler) run(ctx context.Context, dir, bin string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// parseLog extracts errors ("! ..." lines) and warnings from LaTeX output
func parseLog(out string) (errs, warnings []string) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "!"):
			errs = append(errs, line)
		case strings.Contains(line, "Warning"):
			warnings = append(warnings, line)
		}
	}
	return errs, warnings
}

// CompileToPNG compiles in a scratch directory and returns the PNG bytes
func (c *Compiler) CompileToPNG(ctx context.Context, source string, dpi int) ([]byte, error) {
	opts := Options{DPI: dpi, GenPNG: true, Scratch: true}
	result, err := c.CompileWithOptions(ctx, source, "table", opts)
	if err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, &CompileError{Errors: result.Errors}
	}

	return result.PNG, nil
}

// Rasterize converts an already compiled PDF into a PNG
func (c *Compiler) Rasterize(ctx context.Context, pdf []byte, dpi int) ([]byte, error) {
	workDir, err := c.getWorkDir(Options{Scratch: true})
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	if err := os.WriteFile(filepath.Join(workDir, "table.pdf"), pdf, 0644); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	pngPath, err := c.rasterize(ctx, workDir, "table", dpi)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("rasterizer interrupted: %w", ctxErr)
		}
		return nil, err
	}

	content, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PNG: %w", err)
	}
	return content, nil
}

// Validate checks if source compiles without keeping outputs
func (c *Compiler) Validate(ctx context.Context, source string) (bool, []string) {
	result, err := c.CompileWithOptions(ctx, source, "_validate_temp", Options{Scratch: true})
	if err != nil {
		return false, []string{err.Error()}
	}
	return result.Success, result.Errors
}

// IsCompileError reports whether err is a LaTeX failure rather than an
// infrastructure one
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// GetOutputDir returns the compiler's base output directory
func (c *Compiler) GetOutputDir() string {
	return c.outputDir
}

// GetExecutablePath returns the absolute path to the LaTeX executable
func (c *Compiler) GetExecutablePath() string {
	return c.latexPath
}
