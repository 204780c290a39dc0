package task

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
)

type Runner interface {
	Run() error
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func() error

func (f RunnerFunc) Run() error {
	return f()
}

type TickerTask struct {
	interval       time.Duration
	runner         Runner
	skipInitialRun bool
	clock          clock.Clock
	done           chan struct{}
}

func NewTickerTask(interval time.Duration, runner Runner) *TickerTask {
	return NewTickerTaskWithOptions(Options{
		Interval: interval,
		Runner:   runner,
	})
}

type Options struct {
	Interval       time.Duration
	Runner         Runner
	SkipInitialRun bool
	// Clock drives the ticker. Defaults to the wall clock.
	Clock clock.Clock
}

func NewTickerTaskWithOptions(opt Options) *TickerTask {
	c := opt.Clock
	if c == nil {
		c = clock.New()
	}
	return &TickerTask{
		interval:       opt.Interval,
		runner:         opt.Runner,
		skipInitialRun: opt.SkipInitialRun,
		clock:          c,
		done:           make(chan struct{}),
	}
}

// Start runs the task immediately, unless SkipInitialRun is set, and then schedules it to run
// periodically if a positive interval has been specified.
func (t *TickerTask) Start() {
	if !t.skipInitialRun {
		t.run()
	}

	if t.interval > 0 {
		go t.runRecurring()
	}
}

// Stop stops the periodic task but the task runner maintains state
func (t *TickerTask) Stop() {
	close(t.done)
}

// Done exports readonly done channel
func (t *TickerTask) Done() <-chan struct{} {
	return t.done
}

func (t *TickerTask) run() {
	if err := t.runner.Run(); err != nil {
		glog.Warningf("Ticker task failed: %v", err)
	}
}

// runRecurring runs the task on every tick until Stop is called.
func (t *TickerTask) runRecurring() {
	ticker := t.clock.Ticker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.run()
		case <-t.done:
			return
		}
	}
}
