// Package job defines the job state machine and its lone implementation.
package job

import (
	"errors"

	"github.com/coreforge/jobrunner/resources"
)

// ErrJobNotRunning is returned when attempting to stop a job that has not
// been started yet. Stopping a job that has already finished succeeds.
var ErrJobNotRunning = errors.New("job not running")

// Status represents the current state of a job. A job transitions
// monotonically through Submitted -> Running -> {Success, Failed, Killed}
// and never leaves a terminal state once reached.
type Status int

const (
	// StatusUnspecified should never be observed on a real job; it exists
	// only as the zero value so an unset status is detectable as a bug.
	StatusUnspecified Status = iota
	StatusSubmitted
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusKilled
)

// Terminal reports whether s is one of the DAG's terminal states.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusKilled
}

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusKilled:
		return "killed"
	default:
		return "unspecified"
	}
}

// StatusResult holds the status and optional exit code for a job. ExitCode
// is nil while the job has not yet produced one (Submitted or Running).
// Once non-nil, it follows the os/exec convention: a normal exit carries
// its exit code directly; a signal-terminated process carries 128+signal.
// A single int field therefore communicates both spec.md's
// Finished{exit_code} and Killed{signal} variants.
type StatusResult struct {
	Status   Status
	ExitCode *int
}

// Options configures job construction.
type Options struct {
	Owner     string            // opaque identity string; the only authorization principal
	Cgroup    *resources.Cgroup // nil if running without cgroups
	NoCleanup bool              // if true, skip cgroup cleanup on exit; used by tests that inspect the cgroup after the job finishes
}

// Job is the unit the Worker supervises. There is a single implementation
// (*localJob); the interface exists so the owning package can be tested
// against a narrow contract.
type Job interface {
	ID() string
	Owner() string
	Start() error
	Status() StatusResult
	Stop() error
	Wait()
}

// OutputSink is the subset of *output.Buffer a Job needs: something it can
// hand to exec.Cmd as Stdout/Stderr, and Close to mark EOF once the child
// has exited and both pipes have drained. Declared here, instead of
// importing package output, to keep this package's surface decoupled from
// the fan-out implementation.
type OutputSink interface {
	Write(p []byte) (int, error)
	Close()
}

// New constructs a Job bound to the given command, owner, cgroup (optional)
// and output sink. The returned job is in StatusSubmitted until Start is
// called.
func New(id, command string, args []string, out OutputSink, opts Options) Job {
	return &localJob{
		id:        id,
		command:   command,
		args:      args,
		status:    StatusSubmitted,
		owner:     opts.Owner,
		cgroup:    opts.Cgroup,
		out:       out,
		noCleanup: opts.NoCleanup,
	}
}
