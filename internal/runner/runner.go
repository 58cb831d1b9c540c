// Package runner executes scheduled background tasks. The scheduler is
// external to the tasks themselves: a task is a plain function of a
// context, so its behavior can be tested by simulating ticks without any
// process-resident timer state.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is a unit of scheduled background work.
type Task interface {
	// Name returns the unique name of the task.
	Name() string

	// Schedule returns the cron expression (with seconds) for this task.
	Schedule() string

	// Run executes one tick of the task.
	Run(ctx context.Context) error

	// Timeout bounds a single tick.
	Timeout() time.Duration
}

// Runner drives registered tasks on their cron schedules.
type Runner struct {
	cron   *cron.Cron
	tasks  []Task
	logger *log.Logger
	wg     sync.WaitGroup
}

// New creates a runner for the given tasks.
func New(tasks ...Task) *Runner {
	return &Runner{
		cron:   cron.New(cron.WithSeconds()),
		tasks:  tasks,
		logger: log.New(os.Stdout, "[RUNNER] ", log.LstdFlags),
	}
}

// Start schedules all tasks and blocks until a termination signal or
// context cancellation.
func (r *Runner) Start(ctx context.Context) error {
	for _, task := range r.tasks {
		task := task
		r.logger.Printf("scheduling %s (%s)", task.Name(), task.Schedule())
		if _, err := r.cron.AddFunc(task.Schedule(), func() {
			r.runOnce(ctx, task)
		}); err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", task.Name(), err)
		}
	}
	r.cron.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		r.logger.Printf("received signal: %v", sig)
		r.Stop()
		return nil
	case <-ctx.Done():
		r.Stop()
		return ctx.Err()
	}
}

func (r *Runner) runOnce(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	tickCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	start := time.Now()
	if err := task.Run(tickCtx); err != nil {
		r.logger.Printf("task %s failed after %v: %v", task.Name(), time.Since(start), err)
		return
	}
	r.logger.Printf("task %s completed in %v", task.Name(), time.Since(start))
}

// Stop halts scheduling and waits for in-flight ticks.
func (r *Runner) Stop() {
	stopCtx := r.cron.Stop()
	r.wg.Wait()
	<-stopCtx.Done()
}
