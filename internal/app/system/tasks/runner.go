// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// defaultInterval is used for jobs registered without an interval.
const defaultInterval = time.Hour

// Job is a background task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run. Zero uses Interval.
	Timeout time.Duration
	// Delay postpones the first run. Zero runs as soon as the runner starts.
	Delay time.Duration
	Run   func(ctx context.Context) error
}

// Status is a job's run history.
type Status struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	Running   bool          `json:"running"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// Runner runs registered jobs until stopped. Register jobs before Start.
type Runner struct {
	logger *zap.Logger

	mu      sync.Mutex
	jobs    []Job
	status  map[string]*Status
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new task runner.
func New(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, status: map[string]*Status{}}
}

// Register adds a job. A non-positive interval is replaced with one hour;
// a second job under an existing name is ignored.
func (r *Runner) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.status[job.Name]; dup {
		r.logger.Warn("job already registered; ignoring", zap.String("job", job.Name))
		return
	}
	if job.Interval <= 0 {
		r.logger.Warn("job registered without interval; using default",
			zap.String("job", job.Name),
			zap.Duration("interval", defaultInterval))
		job.Interval = defaultInterval
	}
	if job.Timeout <= 0 {
		job.Timeout = job.Interval
	}
	r.jobs = append(r.jobs, job)
	r.status[job.Name] = &Status{Name: job.Name, Interval: job.Interval}
}

// Names returns the registered job names in registration order.
func (r *Runner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.jobs))
	for i, j := range r.jobs {
		names[i] = j.Name
	}
	return names
}

// Status returns a copy of every job's history in registration order.
func (r *Runner) Status() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.jobs))
	for i, j := range r.jobs {
		out[i] = *r.status[j.Name]
	}
	return out
}

// Start launches every registered job. Calling it again is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	r.logger.Info("background task runner started", zap.Int("job_count", len(r.jobs)))
}

// Stop cancels every job and waits for them to return. If ctx ends first
// it returns ctx.Err() and logs the jobs still running.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped gracefully")
		return nil
	case <-ctx.Done():
		var stillRunning []string
		for _, s := range r.Status() {
			if s.Running {
				stillRunning = append(stillRunning, s.Name)
			}
		}
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", stillRunning))
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	if job.Delay > 0 {
		t := time.NewTimer(job.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
	r.execute(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			r.execute(ctx, job)
		}
	}
}

// execute runs job once within its timeout and records the outcome.
func (r *Runner) execute(parent context.Context, job Job) error {
	r.mu.Lock()
	st := r.status[job.Name]
	st.Running = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, job.Timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	r.mu.Lock()
	st.Running = false
	st.Runs++
	st.LastRun = start
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	r.mu.Unlock()

	switch {
	case err == nil:
		r.logger.Debug("job completed", zap.String("job", job.Name), zap.Duration("duration", elapsed))
	case parent.Err() != nil:
		// Shutdown, not a failure worth an error log.
		r.logger.Debug("job cancelled during shutdown", zap.String("job", job.Name))
	default:
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	}
	return err
}

// RunOnce runs the named job now, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	r.mu.Lock()
	var (
		job   Job
		found bool
	)
	for _, j := range r.jobs {
		if j.Name == name {
			job, found = j, true
			break
		}
	}
	r.mu.Unlock()
	if !found {
		return ErrUnknownJob
	}
	return r.execute(ctx, job)
}
