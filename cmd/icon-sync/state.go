package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"icon-sync/internal/maintenance"
	"icon-sync/internal/settings"
	"icon-sync/internal/startup"
)

var flagDeleteOld bool

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Stop automatic passes until resume",
	Long: `Set the paused flag. While paused the agent ignores file changes and
periodic ticks; "icon-sync scan" and POST /api/maintenance still run. When
the agent is running the request goes through its status API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSetPaused(cmd.Context(), cmd.OutOrStdout(), true)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Re-enable automatic passes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSetPaused(cmd.Context(), cmd.OutOrStdout(), false)
	},
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List, add or remove watched folders",
	Long: `Watched folders are extra folders whose images the agent copies into the
library before its startup and periodic passes. Sources are never moved.`,
	Args: cobra.NoArgs,
	RunE: runFoldersList,
}

var foldersAddCmd = &cobra.Command{
	Use:   "add <folder>...",
	Short: "Watch more folders",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFoldersEdit(func(s *settings.Store, dir string) error { return s.AddWatchFolder(dir) }),
}

var foldersRemoveCmd = &cobra.Command{
	Use:   "remove <folder>...",
	Short: "Stop watching folders",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFoldersEdit(func(s *settings.Store, dir string) error { return s.RemoveWatchFolder(dir) }),
}

var relocateCmd = &cobra.Command{
	Use:   "relocate <new-root>",
	Short: "Move the library to a new root folder",
	Long: `Copy "Icon Images" from the current library root to <new-root>, then make
<new-root> the library root. With --delete-old the old images folder is
removed after a successful copy. Ctrl-C before the copy finishes leaves the
current root in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelocate,
}

func init() {
	relocateCmd.Flags().BoolVar(&flagDeleteOld, "delete-old", false, "Delete the old images folder after copying")
	foldersCmd.AddCommand(foldersAddCmd, foldersRemoveCmd)
	rootCmd.AddCommand(pauseCmd, resumeCmd, foldersCmd, relocateCmd)
}

func runSetPaused(ctx context.Context, out io.Writer, paused bool) error {
	cfg, err := startup.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	store, err := settings.Open(cfg.SettingsDir())
	if errors.Is(err, settings.ErrLocked) {
		return postPaused(ctx, out, cfg.StatusAddr, paused)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetPaused(paused); err != nil {
		return err
	}
	fmt.Fprintf(out, "paused=%v\n", paused)
	return nil
}

// postPaused asks the running agent to change the paused flag.
func postPaused(ctx context.Context, out io.Writer, addr string, paused bool) error {
	if addr == "" {
		return fmt.Errorf("%w and its status API is disabled; stop the agent first", settings.ErrLocked)
	}
	path := "/api/resume"
	if paused {
		path = "/api/pause"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contact agent at %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent at %s answered %s", addr, resp.Status)
	}
	fmt.Fprintf(out, "paused=%v (via agent at %s)\n", paused, addr)
	return nil
}

func openSettings() (*settings.Store, error) {
	cfg, err := startup.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	store, err := settings.Open(cfg.SettingsDir())
	if errors.Is(err, settings.ErrLocked) {
		return nil, fmt.Errorf("%w; stop \"icon-sync watch\" to edit watched folders", err)
	}
	return store, err
}

func runFoldersList(cmd *cobra.Command, _ []string) error {
	store, err := openSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	folders, err := store.WatchFolders()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(folders) == 0 {
		fmt.Fprintln(out, "no watched folders")
		return nil
	}
	for _, f := range folders {
		fmt.Fprintln(out, f)
	}
	return nil
}

func runFoldersEdit(edit func(s *settings.Store, dir string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openSettings()
		if err != nil {
			return err
		}
		defer store.Close()

		for _, dir := range args {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("%s: %w", dir, err)
			}
			if err := edit(store, abs); err != nil {
				return fmt.Errorf("%s: %w", dir, err)
			}
		}
		return printFolderCount(cmd.OutOrStdout(), store)
	}
}

func printFolderCount(out io.Writer, store *settings.Store) error {
	folders, err := store.WatchFolders()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d watched folder(s)\n", len(folders))
	return nil
}

func runRelocate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	progress := newProgressPrinter(os.Stderr)
	err = startup.Relocate(ctx, a.store, a.cfg.LibraryRoot, args[0], startup.RelocateOptions{
		DeleteOld:  flagDeleteOld,
		OnProgress: progress.Step(maintenance.PhaseCopy),
	})
	progress.Clear()
	if errors.Is(err, startup.ErrSameLocation) {
		fmt.Fprintln(cmd.OutOrStdout(), "library is already at", args[0])
		return nil
	}
	if err != nil {
		return err
	}

	root, err := a.store.LibraryRoot()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "library root:", root)
	return nil
}
