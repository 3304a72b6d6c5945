package job

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/coreforge/jobrunner/resources"
)

// localJob manages the lifetime of the job, and therefore the job's cgroup
// and output sink. Once properly constructed, localJob is responsible for
// cleaning up the cgroup it was provided.
type localJob struct {
	mu       sync.Mutex // Guards status and exitCode.
	id       string     // Unique job identifier.
	owner    string     // Opaque owner identity; the only authorization principal.
	command  string     // Executable path.
	args     []string   // Command line arguments.
	status   Status     // Current job status.
	exitCode *int       // Process exit code: nil if not yet exited.
	cmd      *exec.Cmd  // Underlying OS process.

	cgroup    *resources.Cgroup // Resource limits: nil if running without cgroups.
	out       OutputSink        // Combined stdout+stderr sink.
	noCleanup bool              // If true, skip cgroup cleanup on exit.
}

// TODO: Ideally we would be running jobs as a different user. For simplicity,
// we ignore this for now. It would be best to use user namespaces such that
// the job we run does not have permissions to the user running the daemon.

// pidNamespaceFlags returns the Cloneflags and optional UID/GID mappings
// needed to run the child in its own PID namespace.
//
// Note: this looks a little complex, but the rationale is to make it so that
// if the daemon dies unexpectedly (e.g. gets a SIGKILL), then we want all of
// the jobs to be killed as well. This is set up so that it works regardless
// of whether the daemon is running as root or not.
//
// Problem: we need to ensure that if the daemon dies (e.g. it gets killed
// with a SIGKILL signal), then we want all of its child processes to die.
// We can leverage cgroups to achieve this, but what if cgroups are not
// available? (e.g. if the server is run as a non-root user, then we cannot
// configure cgroups.)
//
// Solution: for the non-cgroups use case, we can launch the child processes
// in a new PID namespace. This way the new process will get launched under a
// new PID 1. If the process with PID 1 dies, then the kernel will sigkill
// all processes that PID owns. Because we launch the child processes with
// Pdeathsig: syscall.SIGKILL, when the daemon dies, it will send a sigkill
// to this child process. Because this child has the PID of 1 in its process
// namespace, the kernel will then SIGKILL any child processes in this
// namespace.
//
// When running as root, CLONE_NEWPID alone suffices. Without root, we also
// create a user namespace (CLONE_NEWUSER) and map the current UID/GID into
// it so the child retains file-access permissions.
func pidNamespaceFlags() (uintptr, []syscall.SysProcIDMap, []syscall.SysProcIDMap) {
	uid := os.Getuid()
	if uid == 0 {
		return syscall.CLONE_NEWPID, nil, nil
	}
	gid := os.Getgid()
	return syscall.CLONE_NEWPID | syscall.CLONE_NEWUSER,
		[]syscall.SysProcIDMap{{ContainerID: uid, HostID: uid, Size: 1}},
		[]syscall.SysProcIDMap{{ContainerID: gid, HostID: gid, Size: 1}}
}

func (l *localJob) buildCmd(usePIDNS bool) *exec.Cmd {
	cmd := exec.Command(l.command, l.args...)
	cmd.Stdin = nil
	cmd.Stdout = l.out
	cmd.Stderr = l.out
	cmd.SysProcAttr = &syscall.SysProcAttr{
		// Launch the job as a process group so that we can send signals to
		// all child processes launched by this job.
		Setpgid: true,
		// If the daemon process dies, kill the child process.
		Pdeathsig: syscall.SIGKILL,
	}
	// Use a PID namespace so that when the direct child dies (e.g. via
	// Pdeathsig when the daemon exits), all of its descendants are also
	// killed by the kernel. When PID 1 in a PID namespace exits, the kernel
	// sends SIGKILL to every remaining process in that namespace.
	if usePIDNS {
		flags, uidMap, gidMap := pidNamespaceFlags()
		cmd.SysProcAttr.Cloneflags = flags
		cmd.SysProcAttr.UidMappings = uidMap
		cmd.SysProcAttr.GidMappings = gidMap
	}
	if l.cgroup != nil {
		// Ensure the process is added to the cgroup at creation time, before
		// it execs into the target binary.
		cmd.SysProcAttr.CgroupFD = l.cgroup.FD()
		cmd.SysProcAttr.UseCgroupFD = true
	}
	return cmd
}

// Start starts the local process. It transitions the job from
// StatusSubmitted to StatusRunning.
func (l *localJob) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status != StatusSubmitted {
		return errors.New("job already started")
	}

	// Try to start with a PID namespace. If that fails (e.g. user
	// namespaces are disabled), fall back to starting without one.
	cmd := l.buildCmd(true)
	if err := cmd.Start(); err != nil {
		cmd = l.buildCmd(false)
		if err := cmd.Start(); err != nil {
			if l.cgroup != nil {
				if cgErr := l.cgroup.Cleanup(); cgErr != nil {
					slog.Warn("failed to clean up cgroup", "jobID", l.id, "error", cgErr)
				}
			}
			return fmt.Errorf("failed to start command: %w", err)
		}
		slog.Warn("PID namespace unavailable, job descendants may survive if the daemon dies")
	}

	l.cmd = cmd
	l.status = StatusRunning
	return nil
}

// ID returns the unique job identifier.
func (l *localJob) ID() string {
	return l.id
}

// Owner returns the opaque owner identity the job was started with.
func (l *localJob) Owner() string {
	return l.owner
}

// Status returns the current job status and exit code. The exit code is nil
// while the job is still running or if the exit code could not be
// determined.
func (l *localJob) Status() StatusResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	return StatusResult{Status: l.status, ExitCode: l.exitCode}
}

// Stop kills the job and all of its child processes. It is idempotent: if
// the job has already reached a terminal state, Stop returns nil without
// re-issuing a kill. Returns ErrJobNotRunning if the job has not started
// yet. Stop does not wait for the process to actually exit, and it does
// not itself transition the job's status — Wait is what observes and
// records the terminal transition once the exit-wait pump sees the
// process actually exit.
func (l *localJob) Stop() error {
	var cgroupErr error

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status.Terminal() {
		return nil
	}
	if l.status != StatusRunning {
		return ErrJobNotRunning
	}

	// If cgroups are available, use the cgroup.kill file to terminate the
	// job. This is the recommended approach for service managers such as
	// systemd. See: https://lwn.net/Articles/855924/ and the cgroup.kill
	// section of https://www.kernel.org/doc/html/latest/admin-guide/cgroup-v2.html
	if l.cgroup != nil {
		if err := l.cgroup.Kill(); err != nil {
			cgroupErr = fmt.Errorf("failed to write to cgroup.kill: %w", err)
			slog.Warn("failed to kill job using cgroups", "error", cgroupErr)
		}
	}

	// If cgroups are not available or writing cgroup.kill failed, fall back
	// to sending SIGKILL to the process group. The signal goes to the
	// negative of the PID to reach the whole group.
	if l.cgroup == nil || cgroupErr != nil {
		// kill(2) returns ESRCH if the process has already exited; that is
		// a race with Wait(), not a failure, and is ignored.
		if err := syscall.Kill(-l.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			if cgroupErr != nil {
				err = fmt.Errorf("%w: %w", err, cgroupErr)
			}
			return fmt.Errorf("failed to kill process group: %w", err)
		}
	}

	return nil
}

// Wait blocks until the process exits, then updates the job status and exit
// code, closes the output sink, and releases cgroup resources. This invokes
// Cmd.Wait, which also blocks until the internal stdout/stderr copy
// goroutines have drained — satisfying the requirement that the log buffer
// only closes once all output has been delivered. The terminal status is
// classified from the actual wait status (signaled vs. a normal exit), not
// from whether Stop was called locally: a job can just as well be killed
// by an operator's own signal, a crash, or the cgroup OOM killer. Wait may
// only be called once.
func (l *localJob) Wait() {
	err := l.cmd.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.out.Close()

	defer func() {
		if l.cgroup != nil && !l.noCleanup {
			if err := l.cgroup.Cleanup(); err != nil {
				slog.Warn("failed to clean up cgroup", "jobID", l.id, "error", err)
			}
		}
	}()

	if err == nil {
		l.status = StatusSuccess
		ec := 0
		l.exitCode = &ec
		return
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			l.status = StatusKilled
			ec := 128 + int(ws.Signal())
			l.exitCode = &ec
			return
		}
		l.status = StatusFailed
		ec := exitErr.ExitCode()
		l.exitCode = &ec
		return
	}

	// cmd.Wait failed without an *exec.ExitError (e.g. an I/O error reaping
	// the process); there's no wait status to classify by.
	l.status = StatusFailed
}
