// Package worker manages job execution and lifecycle. It realizes
// spec.md's Supervisor: the single serialized point of entry for
// starting, querying, stopping and streaming the output of jobs.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/coreforge/jobrunner/auth"
	"github.com/coreforge/jobrunner/job"
	"github.com/coreforge/jobrunner/metrics"
	"github.com/coreforge/jobrunner/output"
	"github.com/coreforge/jobrunner/ratelimit"
	"github.com/coreforge/jobrunner/resources"
)

// ErrJobNotFound is returned when a job ID does not exist.
var ErrJobNotFound = errors.New("job not found")

// ErrRateLimited is returned when an owner has exceeded their StartJob
// admission rate.
var ErrRateLimited = errors.New("rate limit exceeded")

// Worker manages a set of running jobs.
//
// TODO: Finished jobs are never removed from the map. For a long-running
// server, consider adding a cleanup mechanism to avoid unbounded memory growth.
type Worker struct {
	mu        sync.RWMutex
	jobs      map[string]job.Job          // TODO: This would ideally be stored in a database. Using a Map for simplicity.
	owners    map[string]auth.Identity    // Map jobID to owner identity.
	outputs   map[string]*output.Buffer   // Map jobID to its combined stdout/stderr buffer.
	cgroupMgr resources.Manager
	noCleanup bool
	limiter   *ratelimit.Limiter // nil disables admission rate limiting.
}

// Options configures a Worker.
type Options struct {
	CgroupMgr resources.Manager
	NoCleanup bool               // If true, skip cgroup cleanup when jobs exit. Used for testing so we can inspect the cgroup directory after a job finishes.
	Limiter   *ratelimit.Limiter // Optional per-owner StartJob admission limiter.
}

// New creates a Worker.
func New(opts Options) *Worker {
	return &Worker{
		jobs:      make(map[string]job.Job),
		owners:    make(map[string]auth.Identity),
		outputs:   make(map[string]*output.Buffer),
		cgroupMgr: opts.CgroupMgr,
		noCleanup: opts.NoCleanup,
		limiter:   opts.Limiter,
	}
}

// trackJob adds the job, its owner and its output buffer to the maps so we
// can look them up by ID.
func (w *Worker) trackJob(jobID string, j job.Job, owner auth.Identity, buf *output.Buffer) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.jobs[jobID] = j
	w.owners[jobID] = owner
	w.outputs[jobID] = buf
}

// StartJob starts a command under the given resource limits and returns the
// job ID. The owner is recorded for authorization checks. Returns
// ErrRateLimited if the owner has exceeded their admission rate.
func (w *Worker) StartJob(command string, args []string, owner auth.Identity, limits resources.Limits) (string, error) {
	if w.limiter != nil && !w.limiter.Allow(owner.Username) {
		return "", ErrRateLimited
	}

	jobID := uuid.New().String()

	cg, err := w.cgroupMgr.CreateCgroup(jobID, limits)
	if err != nil {
		metrics.CgroupWriteFailuresTotal.Inc()
		return "", fmt.Errorf("failed to create cgroup: %w", err)
	}

	buf := output.NewBuffer()
	j := job.New(jobID, command, args, buf, job.Options{
		Owner:     owner.Username,
		Cgroup:    cg,
		NoCleanup: w.noCleanup,
	})

	if err := j.Start(); err != nil {
		return "", err
	}

	w.trackJob(jobID, j, owner, buf)
	metrics.JobsStartedTotal.Inc()
	metrics.JobsRunning.Inc()

	go w.waitJob(jobID, j)

	return jobID, nil
}

// waitJob blocks until the job exits, then records its terminal status in
// the metrics the daemon exposes.
func (w *Worker) waitJob(jobID string, j job.Job) {
	j.Wait()
	metrics.JobsRunning.Dec()
	metrics.JobsTerminalTotal.WithLabelValues(j.Status().Status.String()).Inc()
	slog.Info("job finished", "jobID", jobID, "status", j.Status().Status)
}

// GetJobOwner returns the identity of the job's owner, or ErrJobNotFound.
func (w *Worker) GetJobOwner(jobID string) (auth.Identity, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	owner, ok := w.owners[jobID]
	if !ok {
		return auth.Identity{}, ErrJobNotFound
	}
	return owner, nil
}

func (w *Worker) getJob(jobID string) (job.Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	j, ok := w.jobs[jobID]
	return j, ok
}

// GetJobStatus returns the status and exit code for a job.
func (w *Worker) GetJobStatus(jobID string) (job.StatusResult, error) {
	j, ok := w.getJob(jobID)
	if !ok {
		return job.StatusResult{}, ErrJobNotFound
	}

	return j.Status(), nil
}

// StreamOutput returns a subscriber for the job's combined stdout/stderr.
func (w *Worker) StreamOutput(jobID string) (output.Subscriber, error) {
	w.mu.RLock()
	buf, ok := w.outputs[jobID]
	w.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return buf.Subscribe(), nil
}

// Shutdown closes all job output buffers, unblocking any StreamOutput
// subscribers so that in-flight streaming RPCs can return cleanly during
// graceful shutdown.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for jobID, j := range w.jobs {
		j.Stop()
		w.outputs[jobID].Close()
	}
}

// StopJob kills a running job; it is idempotent once the job has reached a
// terminal state. Returns ErrJobNotFound or job.ErrJobNotRunning (if the job
// has not started yet) on failure.
func (w *Worker) StopJob(jobID string) error {
	j, ok := w.getJob(jobID)
	if !ok {
		return ErrJobNotFound
	}

	slog.Info(
		"stopping job",
		"jobID", jobID,
	)
	return j.Stop()
}
