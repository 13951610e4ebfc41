// Package jobs runs the custody background cycles on a shared
// scheduler. Every job runs in singleton mode: a cycle that overruns
// its interval is never stacked on top of itself.
package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/ankerid/custody/internal/config"
	"github.com/ankerid/custody/internal/sweep"
	"github.com/ankerid/custody/internal/watcher"
	"github.com/ankerid/custody/pkg/logging"
)

// Runner owns the scheduler and the contexts handed to each cycle.
type Runner struct {
	scheduler *gocron.Scheduler
	watcher   *watcher.Watcher
	sweeper   *sweep.Sweeper
	symbols   []string
	cfg       config.JobsConfig
	log       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a runner. symbols lists the coins eligible for hot moves.
func New(w *watcher.Watcher, s *sweep.Sweeper, symbols []string, cfg config.JobsConfig, log *logging.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		scheduler: gocron.NewScheduler(time.UTC),
		watcher:   w,
		sweeper:   s,
		symbols:   symbols,
		cfg:       cfg,
		log:       log.Component("jobs"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the cycles and starts the scheduler in the background.
func (r *Runner) Start() error {
	if _, err := r.scheduler.Every(r.cfg.PollIntervalSec).Seconds().SingletonMode().Do(r.runScan); err != nil {
		return err
	}
	if _, err := r.scheduler.Every(r.cfg.MergeIntervalSec).Seconds().SingletonMode().Do(r.runMerge); err != nil {
		return err
	}
	if _, err := r.scheduler.Every(r.cfg.HotSweepIntervalSec).Seconds().SingletonMode().Do(r.runHotMoves); err != nil {
		return err
	}

	r.scheduler.StartAsync()
	r.log.Info("background jobs started",
		"poll_sec", r.cfg.PollIntervalSec,
		"merge_sec", r.cfg.MergeIntervalSec,
		"hot_sweep_sec", r.cfg.HotSweepIntervalSec)
	return nil
}

// Stop cancels running cycles and stops the scheduler, blocking until
// in-flight jobs return.
func (r *Runner) Stop() {
	r.cancel()
	r.scheduler.Stop()
}

func (r *Runner) runScan() {
	r.watcher.ScanAll(r.ctx)
}

func (r *Runner) runMerge() {
	r.watcher.MergePending(r.ctx)
}

func (r *Runner) runHotMoves() {
	for _, symbol := range r.symbols {
		if r.ctx.Err() != nil {
			return
		}
		if _, err := r.sweeper.MoveFromHot(r.ctx, symbol); err != nil {
			r.log.Warn("hot move skipped", "coin", symbol, "err", err)
		}
	}
}
