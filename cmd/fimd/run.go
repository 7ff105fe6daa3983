package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wazuh-fim/fimcore/internal/fimcore/engine"
	"github.com/wazuh-fim/fimcore/internal/fimcore/entry"
	"github.com/wazuh-fim/fimcore/internal/fimcore/fswatch"
	"github.com/wazuh-fim/fimcore/internal/fimlog"
)

// terminationSignals are the signals that request a graceful shutdown of the
// daemon's scan loop.
var terminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

func runMain(command *cobra.Command, arguments []string) error {
	logger := fimlog.RootLogger.Sublogger("fimd")

	eng, cfg, _, err := loadEngine(runConfiguration.config, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, terminationSignals...)
	go func() {
		<-signals
		logger.Info("received termination signal, shutting down")
		cancel()
	}()

	if _, err := eng.ScanOnce(ctx); err != nil {
		return errors.Wrap(err, "initial scan failed")
	}

	if err := startRealtimeWatch(ctx, eng, cfg, logger); err != nil {
		return err
	}
	warnUnbackedWhodataRoots(cfg, logger)

	interval := runConfiguration.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := eng.ScanOnce(ctx); err != nil {
				logger.Warn(errors.Wrap(err, "scheduled scan failed"))
			}
		}
	}
}

// startRealtimeWatch installs an fswatch.Watcher over every root configured
// with RealtimeActive, feeding HandleIntake. Whodata roots are not handled
// here; see warnUnbackedWhodataRoots. A root that cannot be watched is
// logged and skipped; it does not abort the daemon.
func startRealtimeWatch(ctx context.Context, eng *engine.Engine, cfg engine.Config, logger *fimlog.Logger) error {
	var roots []string
	for _, root := range cfg.Roots {
		if root.ModeBits.Has(entry.RealtimeActive) {
			roots = append(roots, root.Path)
		}
	}
	if len(roots) == 0 {
		return nil
	}

	watcher, err := fswatch.New(logger)
	if err != nil {
		return errors.Wrap(err, "unable to start realtime watcher")
	}
	for _, root := range roots {
		if err := watcher.AddRoot(root); err != nil {
			logger.Warn(errors.Wrapf(err, "unable to watch realtime root %s", root))
		}
	}

	go func() {
		err := watcher.Run(ctx, func(ctx context.Context, path string) error {
			return eng.HandleIntake(ctx, path, entry.ModeRealtime, nil)
		})
		if err != nil {
			logger.Warn(errors.Wrap(err, "realtime watcher exited"))
		}
	}()

	return nil
}

// warnUnbackedWhodataRoots logs, for every root configured with
// WhodataActive, that this build has no audit backend wired in and the root
// falls back to scheduled-only monitoring (spec.md §5's documented
// fallback). internal/fimcore/whodata.Healthcheck and Adapter are ready to
// drive a real audit-event source; plugging one in is a deployment concern,
// not a core one.
func warnUnbackedWhodataRoots(cfg engine.Config, logger *fimlog.Logger) {
	for _, root := range cfg.Roots {
		if root.ModeBits.Has(entry.WhodataActive) {
			logger.Warn(errors.Errorf("root %s requests whodata but no audit backend is configured; falling back to scheduled-only", root.Path))
		}
	}
}

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon until terminated",
	Run:   mainify(runMain),
}

var runConfiguration struct {
	config   string
	interval time.Duration
}

func init() {
	flags := runCommand.Flags()
	flags.StringVarP(&runConfiguration.config, "config", "c", "fimd.yaml", "Path to the configuration document")
	flags.DurationVar(&runConfiguration.interval, "interval", 5*time.Minute, "Interval between scheduled scans")
}
