package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"icon-sync/internal/icon"
	"icon-sync/internal/library"
	"icon-sync/internal/maintenance"
	"icon-sync/internal/orphans"
	"icon-sync/internal/startup"
)

// Encode flags shared by run and encode.
var (
	flagSizes     string
	flagPadding   string
	flagSuffix    string
	flagOverwrite bool
	flagNoAlpha   bool
	flagNoCrop    bool
	flagRecursive bool
	flagAction    string
)

var runCmd = &cobra.Command{
	Use:   "run <file-or-folder>...",
	Short: "Copy images into the library and build their icons",
	Long: `Copy every image found in the inputs into the library (skipping names the
library already holds), then build an icon for each library copy. A
maintenance pass follows the run. Ctrl-C stops before the next image.

Examples:
  icon-sync run ~/Downloads/logo.png
  icon-sync run ~/Pictures/icons --recursive --sizes 16,32,48,256`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one maintenance pass now",
	Long: `Normalize nested images, sweep orphan icons and build missing or stale
icons for the whole library, then print the scan summary.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var encodeCmd = &cobra.Command{
	Use:   "encode <image> [output]",
	Short: "Build one icon without touching the library",
	Long: `Encode a single image into a multi-size icon. output may be a folder or a
.ico path and defaults to the image's folder.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEncode,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete or quarantine icons whose source image is gone",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Flatten images in library subfolders up to the library root",
	Args:  cobra.NoArgs,
	RunE:  runNormalize,
}

func addEncodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagSizes, "sizes", "", "Comma separated frame sizes, e.g. 16,32,48 (default from config)")
	cmd.Flags().StringVar(&flagPadding, "padding", "", "Padding preset: tight, balanced or extra (default from config)")
	cmd.Flags().BoolVar(&flagNoAlpha, "no-alpha", false, "Flatten transparency onto black")
	cmd.Flags().BoolVar(&flagNoCrop, "no-crop", false, "Do not trim transparent borders")
}

func init() {
	addEncodeFlags(runCmd)
	runCmd.Flags().BoolVarP(&flagRecursive, "recursive", "r", false, "Descend into subfolders of folder inputs")
	runCmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "Rebuild icons that already exist")

	addEncodeFlags(encodeCmd)
	encodeCmd.Flags().StringVar(&flagSuffix, "suffix", "", "Suffix appended to the output name")
	encodeCmd.Flags().BoolVar(&flagOverwrite, "overwrite", false, "Replace an existing output file")

	sweepCmd.Flags().StringVar(&flagAction, "action", "", "delete or quarantine (default from config)")

	rootCmd.AddCommand(runCmd, scanCmd, encodeCmd, sweepCmd, normalizeCmd)
}

// encodeOverrides applies the encode flags that were set on cmd to the
// configured sizes and options.
func encodeOverrides(cmd *cobra.Command, sizes []int, opts icon.Options) ([]int, icon.Options, error) {
	flags := cmd.Flags()
	if flags.Changed("sizes") {
		parsed, err := icon.ParseSizes(flagSizes)
		if err != nil {
			return nil, opts, fmt.Errorf("--sizes: %w", err)
		}
		sizes = parsed
	}
	if flags.Changed("padding") {
		opts.Padding = flagPadding
	}
	if flags.Changed("no-alpha") {
		opts.KeepAlpha = !flagNoAlpha
	}
	if flags.Changed("no-crop") {
		opts.Autocrop = !flagNoCrop
	}
	if flags.Changed("suffix") {
		opts.Suffix = flagSuffix
	}
	if flags.Changed("overwrite") {
		opts.Overwrite = flagOverwrite
	}
	return sizes, opts, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLibrary(); err != nil {
		return err
	}

	sizes, opts, err := encodeOverrides(cmd, a.cfg.Sizes, a.cfg.EncodeOptions())
	if err != nil {
		return err
	}

	orch, release := a.orchestrator()
	defer release()
	progress := newProgressPrinter(os.Stderr)
	orch.OnProgress(progress.Update)
	problems := collectProblems()

	result, err := orch.Run(ctx, args, maintenance.RunOptions{
		Recursive: flagRecursive || a.cfg.Recursive,
		Sizes:     sizes,
		Options:   &opts,
	})
	if err != nil {
		progress.Clear()
		problems.Print(os.Stderr)
		return err
	}

	// Run requested a follow-up pass; let it finish unless interrupted.
	if ctx.Err() == nil {
		orch.Wait()
	}
	progress.Clear()

	fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
	if report, ok := orch.LastReport(); ok {
		a.recordPass(ctx, report)
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	}
	problems.Print(os.Stderr)
	if result.Cancelled {
		return ctx.Err()
	}
	return nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLibrary(); err != nil {
		return err
	}

	orch, release := a.orchestrator()
	defer release()
	progress := newProgressPrinter(os.Stderr)
	orch.OnProgress(progress.Update)
	problems := collectProblems()

	report, err := orch.RunPass(ctx, "manual")
	progress.Clear()
	if err != nil {
		problems.Print(os.Stderr)
		return err
	}
	a.recordPass(ctx, report)

	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	problems.Print(os.Stderr)
	if report.Failure != "" {
		return fmt.Errorf("pass failed: %s", report.Failure)
	}
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg, err := startup.LoadConfig(flagConfig)
	if err != nil {
		return err
	}

	src := args[0]
	out := filepath.Dir(src)
	if len(args) == 2 {
		out = args[1]
	}

	opts := cfg.EncodeOptions()
	opts.Suffix = ""
	opts.Overwrite = false
	sizes, opts, err := encodeOverrides(cmd, cfg.Sizes, opts)
	if err != nil {
		return err
	}

	enc := icon.NewEncoder(startup.NewRasterizer(cfg.Rasterizer))
	defer startup.ShutdownRasterizer(cfg.Rasterizer)

	res := enc.Encode(cmd.Context(), src, out, sizes, opts)
	switch res.Status {
	case icon.StatusConverted:
		fmt.Fprintf(cmd.OutOrStdout(), "converted %s -> %s %v\n", res.Source, res.OutPath, res.Sizes)
	case icon.StatusSkipped:
		fmt.Fprintf(cmd.OutOrStdout(), "skipped %s: %s (use --overwrite to replace)\n", res.Source, res.Message)
	default:
		return fmt.Errorf("encode %s: %w", src, res.Err)
	}
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLibrary(); err != nil {
		return err
	}

	action := a.cfg.OrphanAction
	if cmd.Flags().Changed("action") {
		action = orphans.NormalizeAction(flagAction)
	}

	sweeper := &orphans.Sweeper{}
	removed, err := sweeper.Sweep(a.cfg.ImagesDir(), a.cfg.IconsDir(), a.cfg.Suffix, action)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sweep (%s): orphans_removed=%d\n", action, removed)
	return nil
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLibrary(); err != nil {
		return err
	}

	writer := library.NewWriter(a.cfg.ImagesDir())
	if a.journal != nil {
		writer.Recorder = a.journal
	}
	progress := newProgressPrinter(os.Stderr)
	n := &library.Normalizer{
		Writer:     writer,
		SkipDirs:   []string{a.cfg.IconsDir()},
		OnProgress: progress.Step(maintenance.PhaseNormalize),
	}

	moved, err := n.Normalize(ctx)
	progress.Clear()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "normalize: normalized=%d\n", moved)
	return nil
}
