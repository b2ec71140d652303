// Package scheduler runs the periodic workers. Each worker is a Task whose
// single cycle is invocable synchronously, which keeps the business logic
// testable without timers; the Runner only supplies cadence and cancellation.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/inkwell/inkwell-backend/internal/platform/logger"
)

// Task is one periodic process (allocator, aggregator, rollup).
type Task interface {
	Name() string
	RunCycle(ctx context.Context) error
}

// Runner drives tasks on fixed intervals or cron schedules until Stop.
type Runner struct {
	log    logger.Logger
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner builds a stopped Runner.
func NewRunner(log logger.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		log:    log,
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every schedules task at a fixed interval. The first cycle runs immediately,
// then once per interval. A cycle that overruns simply delays the next tick;
// cycles of one task never overlap within this process.
func (r *Runner) Every(interval time.Duration, task Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runOnce(task)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.runOnce(task)
			}
		}
	}()
}

// Cron schedules task with a 5-field cron expression (minute granularity),
// used for slow cadences like the nightly revenue rollup.
func (r *Runner) Cron(spec string, task Task) error {
	_, err := r.cron.AddFunc(spec, func() { r.runOnce(task) })
	return err
}

// Start begins cron dispatch. Interval tasks run as soon as Every is called.
func (r *Runner) Start() { r.cron.Start() }

// Stop cancels all tasks and waits for in-flight cycles to finish.
func (r *Runner) Stop() {
	r.cancel()
	cronCtx := r.cron.Stop()
	<-cronCtx.Done()
	r.wg.Wait()
}

func (r *Runner) runOnce(task Task) {
	start := time.Now()
	if err := task.RunCycle(r.ctx); err != nil {
		r.log.Error("worker cycle failed",
			logger.String("task", task.Name()),
			logger.Error(err))
		return
	}
	r.log.Debug("worker cycle done",
		logger.String("task", task.Name()),
		logger.Duration("elapsed", time.Since(start)))
}
