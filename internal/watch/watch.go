// Package watch implements continuous publishing: filesystem events on the
// subtree directory trigger a debounced publish, and an optional schedule
// re-synchronizes from the remote at a fixed interval.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/subsync/internal/config"
	"git.home.luguber.info/inful/subsync/internal/logfields"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
)

// Options tunes the watcher.
type Options struct {
	Debounce time.Duration // quiet period before publishing, default 2s
	Interval time.Duration // periodic re-sync interval, 0 disables
}

// Action is invoked for publish (on changes) and sync (on schedule). Errors
// are logged, not fatal; the watcher keeps running.
type Action func() error

// Watcher drives the continuous publish loop for one subtree configuration.
type Watcher struct {
	prefix   string
	cfg      config.Subtree
	opts     Options
	onChange Action
	onSync   Action
}

// New builds a watcher. onChange runs after the debounce window closes;
// onSync runs on the periodic schedule when an interval is configured.
func New(prefix string, cfg config.Subtree, opts Options, onChange, onSync Action) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	return &Watcher{prefix: prefix, cfg: cfg, opts: opts, onChange: onChange, onSync: onSync}
}

// Run blocks until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	log := slog.With(logfields.Prefix(w.prefix), logfields.Dir(w.cfg.Dir))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	root := filepath.Join(w.cfg.Dir, w.cfg.Path)
	if err := addRecursive(watcher, root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	log.Info("watching subtree", logfields.Subtree(w.cfg.Path), slog.Duration("debounce", w.opts.Debounce))

	var scheduler gocron.Scheduler
	if w.opts.Interval > 0 && w.onSync != nil {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(w.opts.Interval),
			gocron.NewTask(func() {
				if err := w.onSync(); err != nil {
					log.Warn("scheduled sync failed", logfields.Error(err))
				}
			}),
		)
		if err != nil {
			return fmt.Errorf("schedule sync: %w", err)
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		log.Info("scheduled periodic sync", slog.Duration("interval", w.opts.Interval))
	}

	debounce := time.NewTimer(w.opts.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Ignore git's own bookkeeping under .git.
			if within(event.Name, filepath.Join(w.cfg.Dir, ".git")) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}
			log.Debug("change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			if pending {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
			}
			debounce.Reset(w.opts.Debounce)
			pending = true

		case <-debounce.C:
			pending = false
			if w.onChange == nil {
				continue
			}
			if err := w.onChange(); err != nil {
				log.Warn("publish after change failed", logfields.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", logfields.Error(err))
		}
	}
}

// addRecursive registers root and every directory below it.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}
