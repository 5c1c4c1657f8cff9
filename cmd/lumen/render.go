package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lumen/internal/diag"
	"lumen/internal/diagfmt"
)

var renderCmd = &cobra.Command{
	Use:   "render [flags] <batch.json|batch.mp>...",
	Short: "Render diagnostic batches produced by the compiler frontend",
	Long: `Render serialized diagnostic batches as boxed source snippets.

Each batch file holds the diagnostics one compilation unit emitted,
encoded as JSON or msgpack. Batches render in parallel but are written
out whole, in argument order, so blocks are never interleaved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

var errBatchHasErrors = errors.New("diagnostics contain errors")

func init() {
	renderCmd.Flags().String("format", "auto", "batch encoding (json|msgpack|auto)")
	renderCmd.Flags().Uint8("width", 0, "maximum snippet row width in columns (0=unlimited)")
	renderCmd.Flags().Int("jobs", 0, "max parallel workers for multiple batches (0=auto)")
	renderCmd.Flags().Bool("with-stack", true, "include call-stack lines beneath trailers")
	renderCmd.Flags().String("paths", "auto", "trailer path display (auto|relative|basename)")
}

// runRender executes the "render" command: it resolves flags against
// the nearest lumen.toml, decodes every batch argument, renders them
// in parallel and writes the blocks to the error stream in argument
// order. It exits non-zero when any batch contains error-severity
// diagnostics.
func runRender(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	opts, err := resolveOpts(cmd)
	if err != nil {
		return err
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	outputs := make([]string, len(args))
	failed := make([]bool, len(args))

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, len(args)))

	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			diags, err := loadBatch(path, format)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			bag := diag.NewBag(maxDiagnostics)
			for _, d := range diags {
				if !bag.Add(d) {
					break
				}
			}

			var buf bytes.Buffer
			diagfmt.PrettyBag(&buf, bag, opts)
			outputs[i] = buf.String()
			failed[i] = bag.HasErrors()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Diagnostics go to the error stream, never stdout. Each block ends
	// with a blank line when more blocks follow.
	out := cmd.ErrOrStderr()
	wrote := false
	for _, s := range outputs {
		if s == "" {
			continue
		}
		if wrote {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, s)
		wrote = true
	}

	for _, f := range failed {
		if f {
			cmd.SilenceUsage = true
			return errBatchHasErrors
		}
	}
	return nil
}

// resolveOpts merges render flags with lumen.toml defaults; explicitly
// set flags win.
func resolveOpts(cmd *cobra.Command) (diagfmt.PrettyOpts, error) {
	var opts diagfmt.PrettyOpts

	cfg, err := loadProjectConfig(".")
	if err != nil {
		return opts, err
	}

	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return opts, fmt.Errorf("failed to get color flag: %w", err)
	}
	if !cmd.Root().PersistentFlags().Changed("color") && cfg.Diagnostics.Color != "" {
		colorFlag = cfg.Diagnostics.Color
	}
	switch colorFlag {
	case "on", "off", "auto":
	default:
		return opts, fmt.Errorf("invalid color flag %q (must be auto, on or off)", colorFlag)
	}
	opts.Color = colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stderr))

	opts.Width, err = cmd.Flags().GetUint8("width")
	if err != nil {
		return opts, fmt.Errorf("failed to get width flag: %w", err)
	}
	if !cmd.Flags().Changed("width") && cfg.Diagnostics.Width > 0 {
		opts.Width = cfg.Diagnostics.Width
	}

	opts.ShowStack, err = cmd.Flags().GetBool("with-stack")
	if err != nil {
		return opts, fmt.Errorf("failed to get with-stack flag: %w", err)
	}

	pathsFlag, err := cmd.Flags().GetString("paths")
	if err != nil {
		return opts, fmt.Errorf("failed to get paths flag: %w", err)
	}
	switch pathsFlag {
	case "auto":
		opts.PathMode = diagfmt.PathModeAuto
	case "relative":
		opts.PathMode = diagfmt.PathModeRelative
		wd, err := os.Getwd()
		if err != nil {
			return opts, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		opts.BaseDir = wd
	case "basename":
		opts.PathMode = diagfmt.PathModeBasename
	default:
		return opts, fmt.Errorf("invalid paths flag %q (must be auto, relative or basename)", pathsFlag)
	}

	return opts, nil
}

func loadBatch(path, format string) ([]diag.Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := batchFormat(path, format)
	if err != nil {
		return nil, err
	}
	return diag.DecodeBatch(data, f)
}

func batchFormat(path, format string) (diag.BatchFormat, error) {
	switch format {
	case "json":
		return diag.FormatJSON, nil
	case "msgpack":
		return diag.FormatMsgpack, nil
	case "auto":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".mp", ".msgpack":
			return diag.FormatMsgpack, nil
		default:
			return diag.FormatJSON, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q (must be json, msgpack or auto)", format)
}
