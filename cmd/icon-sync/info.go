package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"icon-sync/internal/history"
	"icon-sync/internal/icon"
	"icon-sync/internal/startup"
)

var (
	flagLimit      int
	flagCollisions bool
	flagJSON       bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent maintenance passes or collisions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.ico>...",
	Short: "List the frames stored in icon files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printVersion(cmd.OutOrStdout(), flagJSON)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "n", history.DefaultLimit, "Number of entries to show")
	historyCmd.Flags().BoolVar(&flagCollisions, "collisions", false, "Show collisions instead of passes")
	historyCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON")
	versionCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(historyCmd, inspectCmd, versionCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := startup.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	journal, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer journal.Close()

	out := cmd.OutOrStdout()
	if flagCollisions {
		collisions, err := journal.RecentCollisions(ctx, flagLimit)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeIndentedJSON(out, collisions)
		}
		writeCollisions(out, collisions)
		return nil
	}

	passes, err := journal.RecentPasses(ctx, flagLimit)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeIndentedJSON(out, passes)
	}
	writePasses(out, passes)
	return nil
}

func writePasses(w io.Writer, passes []history.Pass) {
	if len(passes) == 0 {
		fmt.Fprintln(w, "no passes recorded")
		return
	}
	for _, p := range passes {
		fmt.Fprintf(w, "%s  %-8s  %s\n",
			p.Started.Local().Format("2006-01-02 15:04:05"), p.Duration.Round(time.Millisecond), p.Summary())
	}
}

func writeCollisions(w io.Writer, collisions []history.Collision) {
	if len(collisions) == 0 {
		fmt.Fprintln(w, "no collisions recorded")
		return
	}
	for _, c := range collisions {
		fmt.Fprintf(w, "%s  %s\n", c.At.Local().Format("2006-01-02 15:04:05"), c.Message())
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed int
	for _, path := range args {
		frames, err := icon.ReadFrames(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		writeFrames(out, path, frames)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(args))
	}
	return nil
}

func writeFrames(w io.Writer, path string, frames []icon.Frame) {
	fmt.Fprintf(w, "%s: %d frame(s)\n", path, len(frames))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  SIZE\tBPP\tFORMAT\tBYTES")
	for _, f := range frames {
		format := "BMP"
		if f.PNG {
			format = "PNG"
		}
		fmt.Fprintf(tw, "  %dx%d\t%d\t%s\t%d\n", f.Width, f.Height, f.BitCount, format, f.Bytes)
	}
	tw.Flush()
}

func printVersion(w io.Writer, asJSON bool) error {
	info := startup.GetBuildInfo()
	if asJSON {
		return writeIndentedJSON(w, info)
	}
	fmt.Fprintf(w, "icon-sync %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildTime)
	fmt.Fprintf(w, "%s %s/%s\n", info.GoVersion, info.OS, info.Arch)
	return nil
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
