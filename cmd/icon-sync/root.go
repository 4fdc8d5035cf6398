package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"icon-sync/internal/filesystem"
	"icon-sync/internal/history"
	"icon-sync/internal/icon"
	"icon-sync/internal/logging"
	"icon-sync/internal/maintenance"
	"icon-sync/internal/memory"
	"icon-sync/internal/metrics"
	"icon-sync/internal/settings"
	"icon-sync/internal/startup"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "icon-sync",
	Short: "Keep a folder of multi-size icons in sync with an image library",
	Long: `icon-sync maintains <library>/Icon Images as a duplicate-free library of
source images and generates one multi-resolution .ico per image in
<library>/Icon Images/Icons.

Configuration is read from config.yaml in the state directory (or --config)
and ICONSYNC_* environment variables. See "icon-sync watch" for the
background agent.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagLogLevel != "" {
			logging.SetLevel(logging.ParseLevel(flagLogLevel))
		}
		memory.ConfigureFromEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file (default: config.yaml in the state directory)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")
}

// interruptError is the cancellation cause when a signal stops a command.
type interruptError struct {
	sig os.Signal
}

func (e interruptError) Error() string {
	return "interrupted by " + e.sig.String()
}

// Execute runs the root command and exits non-zero on error. The first
// SIGINT or SIGTERM cancels the command context; a second one exits at once.
func Execute() {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		cancel(interruptError{sig: sig})
		<-sigs
		os.Exit(exitCode(context.Canceled))
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// signalName returns the signal that cancelled ctx, or "" when it was not a
// signal.
func signalName(ctx context.Context) string {
	var ie interruptError
	if errors.As(context.Cause(ctx), &ie) {
		return ie.sig.String()
	}
	return ""
}

// app holds what every library command needs once the configuration and
// persisted settings are loaded.
type app struct {
	cfg     *startup.Config
	store   *settings.Store
	journal *history.History
}

// openApp loads the configuration, applies the persisted settings, prepares
// the directories and opens the history journal. The journal is optional:
// failure to open it is logged and commands run without it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := startup.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	store, err := settings.Open(cfg.SettingsDir())
	if errors.Is(err, settings.ErrLocked) {
		return nil, fmt.Errorf("%w; stop \"icon-sync watch\" or use its status API", err)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplySettings(store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply settings: %w", err)
	}

	configureFilesystem(cfg)
	if err := startup.SetupDirectories(cfg); err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{cfg: cfg, store: store}
	if journal, err := history.Open(ctx, cfg.HistoryPath()); err != nil {
		logging.Warn("History journal unavailable: %v", err)
	} else {
		a.journal = journal
	}
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logging.Warn("close history: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logging.Warn("close settings: %v", err)
	}
}

// requireLibrary fails with an actionable error when no library root is set.
func (a *app) requireLibrary() error {
	if a.cfg.ImagesDir() == "" {
		return fmt.Errorf("%w: set library_root in %s or ICONSYNC_LIBRARY_ROOT, or run \"icon-sync relocate <dir>\"",
			maintenance.ErrNoLibrary, configLocation(a.cfg))
	}
	return nil
}

// orchestrator builds an orchestrator for the configured library with the
// configured SVG rasterizer and a memory monitor holding encodes under
// pressure. The returned func releases both.
func (a *app) orchestrator() (*maintenance.Orchestrator, func()) {
	mcfg := a.cfg.Maintenance()
	if a.journal != nil {
		mcfg.Recorder = a.journal
	}
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	mcfg.Throttle = monitor

	raster := startup.NewRasterizer(a.cfg.Rasterizer)
	orch := maintenance.New(mcfg, icon.NewEncoder(raster))
	return orch, func() {
		monitor.Stop()
		startup.ShutdownRasterizer(a.cfg.Rasterizer)
	}
}

// recordPass journals a report. Failures only warn.
func (a *app) recordPass(ctx context.Context, r maintenance.ScanReport) {
	if a.journal == nil {
		return
	}
	if err := a.journal.RecordPass(ctx, r); err != nil {
		logging.Warn("%v", err)
	}
}

func configureFilesystem(cfg *startup.Config) {
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	volumes := map[string]string{"state": cfg.StateDir}
	if cfg.ImagesDir() != "" {
		volumes["library"] = cfg.ImagesDir()
		volumes["icons"] = cfg.IconsDir()
	}
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes))
}

func configLocation(cfg *startup.Config) string {
	if cfg.ConfigFile != "" {
		return cfg.ConfigFile
	}
	return "config.yaml"
}

// exitCode maps a command error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
