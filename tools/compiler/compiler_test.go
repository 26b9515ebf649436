package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeLatex = `#!/bin/sh
for last; do :; done
base="${last%.tex}"
if grep -q FAIL "$last"; then
  echo "! Undefined control sequence."
  echo "l.3 \FAIL"
  exit 1
fi
if grep -q SLOW "$last"; then
  exec sleep 5
fi
echo "LaTeX Warning: Label(s) may have changed."
printf '%%PDF-1.4 fake' > "$base.pdf"
`

const fakeRaster = `#!/bin/sh
for last; do :; done
printf 'PNGDATA' > "$last.png"
`

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain uses sh scripts")
	}
	dir := t.TempDir()
	latex := filepath.Join(dir, "pdflatex")
	raster := filepath.Join(dir, "pdftoppm")
	require.NoError(t, os.WriteFile(latex, []byte(fakeLatex), 0755))
	require.NoError(t, os.WriteFile(raster, []byte(fakeRaster), 0755))

	c, err := New(latex, raster, filepath.Join(dir, "out"))
	require.NoError(t, err)
	return c
}

func TestNewRejectsMissingExecutable(t *testing.T) {
	_, err := New("./does/not/exist/pdflatex", "pdftoppm", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCompileWritesOutputs(t *testing.T) {
	c := newTestCompiler(t)

	result, err := c.CompileWithOptions(context.Background(), `\documentclass{standalone}`, "table", Options{GenPNG: true, SubDir: "demo"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, filepath.Join(c.GetOutputDir(), "demo", "table.pdf"), result.PDFPath)
	assert.FileExists(t, result.PNGPath)
	assert.FileExists(t, filepath.Join(c.GetOutputDir(), "demo", "table.tex"))
	assert.Equal(t, []string{"LaTeX Warning: Label(s) may have changed."}, result.Warnings)
	assert.Empty(t, result.Errors)
}

func TestCompileReportsLatexErrors(t *testing.T) {
	c := newTestCompiler(t)

	result, err := c.Compile(context.Background(), `\FAIL`, "broken")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, []string{"! Undefined control sequence."}, result.Errors)
}

func TestCompileToPNG(t *testing.T) {
	c := newTestCompiler(t)

	png, err := c.CompileToPNG(context.Background(), "ok", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), png)

	_, err = c.CompileToPNG(context.Background(), "FAIL", 0)
	require.Error(t, err)
	assert.True(t, IsCompileError(err))

	entries, err := os.ReadDir(filepath.Join(c.GetOutputDir(), ".jobs"))
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch job directories must be removed")
}

func TestCompileHonorsContext(t *testing.T) {
	c := newTestCompiler(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.CompileToPNG(ctx, "SLOW", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, IsCompileError(err))
}

func TestRasterize(t *testing.T) {
	c := newTestCompiler(t)

	png, err := c.Rasterize(context.Background(), []byte("%PDF-1.4"), 72)
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), png)
}

func TestRasterizeOnlyCompiler(t *testing.T) {
	full := newTestCompiler(t)
	raster := filepath.Join(filepath.Dir(full.GetExecutablePath()), "pdftoppm")

	c, err := New("", raster, t.TempDir())
	require.NoError(t, err)

	_, err = c.Compile(context.Background(), "x", "table")
	assert.ErrorContains(t, err, "no latex compiler configured")

	png, err := c.Rasterize(context.Background(), []byte("%PDF"), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), png)
}

func TestValidate(t *testing.T) {
	c := newTestCompiler(t)

	ok, errs := c.Validate(context.Background(), "fine")
	assert.True(t, ok)
	assert.Empty(t, errs)

	ok, errs = c.Validate(context.Background(), "FAIL")
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
}

func TestParseLog(t *testing.T) {
	errs, warnings := parseLog("This is pdfTeX\n! Missing $ inserted.\n\nPackage tikz Warning: x\n")
	assert.Equal(t, []string{"! Missing $ inserted."}, errs)
	assert.Equal(t, []string{"Package tikz Warning: x"}, warnings)
}
