package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/subsync/internal/metrics"
	"git.home.luguber.info/inful/subsync/internal/retry"
	"git.home.luguber.info/inful/subsync/internal/subtree"
	"git.home.luguber.info/inful/subsync/internal/watch"
)

// WatchCmd implements the 'watch' command: continuous publishing driven by
// filesystem events, with optional periodic re-sync and a metrics endpoint.
type WatchCmd struct {
	Prefix      string        `arg:"" help:"Configuration prefix to watch (e.g. DOCS)"`
	Debounce    time.Duration `default:"2s" help:"Quiet period before publishing after a change"`
	Interval    time.Duration `help:"Periodic re-sync interval (0 disables)"`
	MetricsAddr string        `name:"metrics-addr" help:"Listen address for Prometheus /metrics (empty disables)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	resolved, err := cfg.Resolve(w.Prefix)
	if err != nil {
		return err
	}
	resolved = applyBuildDir(resolved, g.Env)

	recorder := g.Recorder
	if w.MetricsAddr != "" {
		prom := metrics.NewPrometheusRecorder(nil)
		recorder = prom
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		go func() {
			if err := http.ListenAndServe(w.MetricsAddr, mux); err != nil {
				slog.Error("metrics endpoint failed", slog.String("error", err.Error()))
			}
		}()
		slog.Info("serving metrics", slog.String("addr", w.MetricsAddr))
	}

	backoff, initial, maxDelay, attempts := cfg.RetrySettings()
	policy := retry.NewPolicy(backoff, initial, maxDelay, attempts-1)

	publish := func() error {
		return subtree.NewPublisher(w.Prefix, resolved, g.Env).
			WithAttempts(attempts).
			WithPolicy(policy).
			WithRecorder(recorder).
			Run()
	}
	sync := func() error {
		return subtree.NewSynchronizer(w.Prefix, resolved, g.Env).
			WithRecorder(recorder).
			Run()
	}

	// Start from a clean checkout before watching.
	if err := sync(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := watch.New(w.Prefix, resolved, watch.Options{Debounce: w.Debounce, Interval: w.Interval}, publish, sync)
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
