package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"icon-sync/internal/agent"
	"icon-sync/internal/metrics"
	"icon-sync/internal/startup"
)

var (
	flagAddr         string
	flagFlushTimeout time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the background agent",
	Long: `Watch the library folder and keep the icons in sync. A pass runs at
startup, after every burst of file changes, every scan_interval and once
more on shutdown. Images in the watched folders are copied into the
library before the startup and periodic passes.

The status API (status_addr, empty to disable) serves /api/status,
/api/history, /metrics and POST /api/maintenance, /api/pause, /api/resume.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagAddr, "addr", "", "Status API listen address (default from config)")
	watchCmd.Flags().DurationVar(&flagFlushTimeout, "flush-timeout", agent.DefaultFlushTimeout, "Time allowed for the final pass on shutdown")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if cmd.Flags().Changed("addr") {
		a.cfg.StatusAddr = flagAddr
	}

	startup.LogConfig(a.cfg)
	if err := a.requireLibrary(); err != nil {
		return err
	}

	metrics.InitializeMetrics()
	info := startup.GetBuildInfo()
	metrics.SetAppInfo(info.Version, info.Commit, info.GoVersion)

	orch, release := a.orchestrator()
	defer release()

	ag := agent.New(agent.Options{
		Config:       a.cfg,
		Orchestrator: orch,
		Settings:     a.store,
		Journal:      a.journal,
		FlushTimeout: flagFlushTimeout,
	})

	// Log the signal before the agent starts its shutdown sequence.
	agentCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
			name := signalName(ctx)
			if name == "" {
				name = "cancel"
			}
			startup.LogShutdownInitiated(name)
			stop()
		case <-agentCtx.Done():
		}
	}()

	return ag.Run(agentCtx)
}
