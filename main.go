package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tabvar-studio/entities/table"
	"tabvar-studio/tools/config"
	"tabvar-studio/tools/latex"
	"tabvar-studio/tools/logger"
	"tabvar-studio/tools/server"
	"tabvar-studio/tools/tkztab"
	"tabvar-studio/tools/watcher"
)

var (
	// Global flags
	configPath string
	outputDir  string
	verbose    bool

	// generate / preview / watch flags
	snippet   bool
	outFile   string
	normalize bool
	withPNG   bool
	debounce  time.Duration

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tabvar",
	Short: "Sign and variation tables as tkz-tab LaTeX",
	Long: `tabvar turns a table description (YAML or JSON) into tkz-tab LaTeX source
and renders PNG previews with a local LaTeX toolchain or a remote compilation API.

Run "tabvar format" for the table file reference.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		level := logger.ParseLevel(cfg.Logging.Level)
		if verbose {
			level = logger.LevelDebug
		}
		format := logger.FormatConsole
		if cfg.Logging.JSON {
			format = logger.FormatJSON
		}
		// stdout carries generated LaTeX; logs go to stderr
		log = logger.NewWithFormat(os.Stderr, level, "", format)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [table-file]",
	Short: "Print the LaTeX for a table",
	Long: `Reads a table file and writes tkz-tab LaTeX to stdout, or to --out.

By default a standalone document is produced; --snippet emits only the
tikzpicture environment for pasting into an existing document.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var previewCmd = &cobra.Command{
	Use:   "preview [table-file]",
	Short: "Write the LaTeX and a PNG preview into the output folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var watchCmd = &cobra.Command{
	Use:   "watch [table-file]",
	Short: "Regenerate whenever the table file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP generation and preview proxy",
	Long: `Starts the rendering proxy.

Endpoints:
  POST /api/generate?mode=document|snippet   table JSON -> LaTeX
  POST /api/render                           {"latex": ...} or {"table": ...} -> PNG
  GET  /healthz`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var initCmd = &cobra.Command{
	Use:   "init [table-file]",
	Short: "Write a starter table file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the Unicode symbols converted to LaTeX",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSymbols(cmd.OutOrStdout())
	},
}

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Show the table file reference",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), TableFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tabvar.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	generateCmd.Flags().BoolVar(&snippet, "snippet", false, "Emit only the tikzpicture block")
	generateCmd.Flags().StringVar(&outFile, "out", "", "Write to this file instead of stdout")
	generateCmd.Flags().BoolVar(&normalize, "normalize", false, "Pad or truncate rows to the number of points")

	previewCmd.Flags().BoolVar(&snippet, "snippet", false, "Write the .tex as a snippet (the preview still compiles a full document)")
	previewCmd.Flags().BoolVar(&normalize, "normalize", false, "Pad or truncate rows to the number of points")

	watchCmd.Flags().BoolVar(&snippet, "snippet", false, "Write the .tex as a snippet")
	watchCmd.Flags().BoolVar(&withPNG, "preview", false, "Also render a PNG on every change")
	watchCmd.Flags().BoolVar(&normalize, "normalize", false, "Pad or truncate rows to the number of points")
	watchCmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "Quiet period before regenerating")

	rootCmd.AddCommand(generateCmd, previewCmd, watchCmd, serveCmd, initCmd, symbolsCmd, formatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func mode() tkztab.Mode {
	if snippet {
		return tkztab.ModeSnippet
	}
	return tkztab.ModeDocument
}

// signalContext is cancelled on interrupt
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	d, err := table.Load(args[0])
	if err != nil {
		return err
	}
	if normalize {
		d.Normalize()
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid table %s: %w", args[0], err)
	}

	src := tkztab.Generate(d, mode())
	if outFile == "" || outFile == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), src)
		return err
	}
	if err := os.WriteFile(outFile, []byte(src), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	log.Info("Wrote %s", outFile)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	svc, err := NewPreviewService(cfg, log)
	if err != nil {
		return err
	}
	studio, err := NewStudio(StudioConfig{OutputDir: cfg.OutputDir, VerboseLogging: verbose}, svc, log)
	if err != nil {
		return err
	}

	out, err := studio.Generate(ctx, TableRequest{
		TablePath: args[0],
		Mode:      mode(),
		Normalize: normalize,
		Preview:   true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s (%dx%d)\n", out.TexPath, out.PNGPath, out.Width, out.Height)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var p Previewer
	if withPNG {
		svc, err := NewPreviewService(cfg, log)
		if err != nil {
			return err
		}
		p = svc
	}
	studio, err := NewStudio(StudioConfig{OutputDir: cfg.OutputDir, VerboseLogging: verbose}, p, log)
	if err != nil {
		return err
	}

	regenerate := func(ctx context.Context, path string) {
		_, err := studio.Generate(ctx, TableRequest{
			TablePath: path,
			Mode:      mode(),
			Normalize: normalize,
			Preview:   withPNG,
			CreatedAt: time.Now(),
		})
		if err != nil {
			log.Error("regeneration failed: %s", truncate(err.Error(), 300))
		}
	}

	// initial run so the output exists before the first edit
	regenerate(ctx, args[0])

	w, err := watcher.New(args[0], debounce, regenerate, log)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var p server.Previewer
	svc, err := NewPreviewService(cfg, log)
	if err != nil {
		// generation still works without a toolchain
		log.Warn("previews disabled: %v", err)
	} else {
		p = svc
		log.Info("preview backend: %s", cfg.Backend)
	}

	srv := server.New(server.Options{
		Addr:         cfg.Server.Addr,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}, p, log)
	return srv.ListenAndServe(ctx)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data := []byte(sampleTable)
	if table.FormatFromPath(path) == table.FormatJSON {
		d, err := table.Decode(data, table.FormatYAML)
		if err != nil {
			return err
		}
		if data, err = table.Encode(d, table.FormatJSON); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info("Wrote %s", path)
	return nil
}

func printSymbols(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GLYPH\tLATEX")
	for _, s := range latex.Symbols() {
		fmt.Fprintf(tw, "%s\t%s\n", s.Glyph, s.Macro)
	}
	return tw.Flush()
}
