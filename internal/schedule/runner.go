package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roomops/herald/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Runner drives the registry from a single goroutine. It wakes on a fixed
// tick, runs every due job sequentially, and sleeps until the next tick.
// A slow job delays later jobs in the same tick; nothing is preempted.
type Runner struct {
	registry *Registry
	logger   *logrus.Logger
	tick     time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

func NewRunner(registry *Registry, logger *logrus.Logger, tick time.Duration) *Runner {
	if tick <= 0 {
		tick = time.Second
	}
	return &Runner{
		registry: registry,
		logger:   logger,
		tick:     tick,
	}
}

// Start launches the loop. It fails if the runner is already running.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("runner already started")
	}

	r.stop = make(chan struct{})
	r.started = true
	r.wg.Add(1)
	go r.loop(r.stop)

	r.logger.WithField("tick", r.tick.String()).Info("Runner started")
	return nil
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	close(r.stop)
	r.started = false
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Runner stopped")
}

// IsRunning reports whether the loop is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *Runner) loop(stop chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runDue(time.Now())
		case <-stop:
			return
		}
	}
}

// runDue executes every due job in order. A failing job is logged and its
// next run still advances; later jobs in the same tick are unaffected.
func (r *Runner) runDue(now time.Time) {
	due := r.registry.DueJobs(now)
	if len(due) == 0 {
		return
	}

	r.logger.WithField("due_jobs", len(due)).Debug("Starting tick")

	for _, job := range due {
		runID := uuid.NewString()[:8]
		start := time.Now()

		err := job.Task()
		r.registry.MarkRun(job, now)

		fields := logrus.Fields{
			"job":      job.Name,
			"run_id":   runID,
			"duration": utils.FormatElapsed(time.Since(start)),
			"next_run": job.NextRun.Format(time.RFC3339),
		}

		if err != nil {
			fields["error"] = err.Error()
			r.logger.WithFields(fields).Error("Job execution failed")
			continue
		}

		r.logger.WithFields(fields).Info("Job execution completed")
	}
}
