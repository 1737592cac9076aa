package schedule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrDuplicateName is returned when a job name is registered twice.
var ErrDuplicateName = errors.New("job name already registered")

// TaskFunc is a single unit of work executed by the runner.
type TaskFunc func() error

// Job is a named task with its recurrence and bookkeeping timestamps.
// Jobs live only in memory and are owned by the Registry that created them.
type Job struct {
	Name    string
	Rule    Rule
	Task    TaskFunc
	LastRun time.Time
	NextRun time.Time
}

// JobStatus is a read-only snapshot of one job, served by the status API.
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	LastRun  time.Time `json:"last_run,omitempty"`
	NextRun  time.Time `json:"next_run"`
}

// Registry holds the set of registered jobs and computes which are due.
// It is constructed once at startup and handed to the Runner explicitly;
// there is no process-wide instance.
type Registry struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []*Job
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Register adds a job and seeds its first run time from the rule. It fails
// with ErrDuplicateName if the name is already taken.
func (r *Registry) Register(name string, rule Rule, task TaskFunc) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[name]; exists {
		return nil, fmt.Errorf("job %q: %w", name, ErrDuplicateName)
	}

	job := &Job{
		Name:    name,
		Rule:    rule,
		Task:    task,
		NextRun: rule.Next(r.now()),
	}

	r.jobs[name] = job
	r.order = append(r.order, job)

	return job, nil
}

// DueJobs returns every job whose next run is at or before now, ordered by
// next run ascending. Jobs due at the same instant keep registration order.
func (r *Registry) DueJobs(now time.Time) []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	due := make([]*Job, 0)
	for _, job := range r.order {
		if !job.NextRun.After(now) {
			due = append(due, job)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextRun.Before(due[j].NextRun)
	})

	return due
}

// MarkRun records an execution at now and recomputes the job's next run
// from its rule. Calling it again with the same now yields the same result.
func (r *Registry) MarkRun(job *Job, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job.LastRun = now
	job.NextRun = job.Rule.Next(now)
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Snapshot returns job statuses in registration order.
func (r *Registry) Snapshot() []JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(r.order))
	for _, job := range r.order {
		statuses = append(statuses, JobStatus{
			Name:     job.Name,
			Schedule: job.Rule.String(),
			LastRun:  job.LastRun,
			NextRun:  job.NextRun,
		})
	}

	return statuses
}
