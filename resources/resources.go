// Package resources provides cgroup v2 resource controls for jobs. It
// realizes spec.md's CgroupHandle: create/destroy a cgroup v2 directory,
// attach a pid, and write limit files.
package resources

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// Limits holds the optional per-job resource envelope from spec.md §3. A
// nil field means "no limit applied for that dimension" — the cgroup
// inherits its parent's setting for that controller.
type Limits struct {
	MemoryHigh *uint64 // bytes
	MemoryMax  *uint64 // bytes
	CPUMax     *uint32 // percentage of one core, 1-100
	CPUWeight  *uint32 // 1-10000
	IOWeight   *uint32 // 1-10000
}

// cpuPeriodMicros is the fixed cpu.max period this daemon uses; cpu_max's
// quota is derived from it. spec.md §9 flags that the wire schema's
// cpu_max is a bare percentage the kernel cannot consume directly — this
// is the chosen resolution: format cpu.max as "<quota> <period>" with
// quota = cpu_max * period / 100.
const cpuPeriodMicros = 100000

// Manager owns the parent cgroup directory that every job's cgroup is
// created under.
type Manager struct {
	parentPath string
}

// Cgroup represents a single job's cgroup.
type Cgroup struct {
	path string
	fd   int
}

// NewManager creates the parent cgroup directory at parentPath and enables
// the cpu, memory and io controllers on it. Returns an error if cgroup v2
// is not available or permissions are insufficient (spec.md's CgroupHandle
// "fail NotFound otherwise" on a missing root).
func NewManager(parentPath string) (*Manager, error) {
	if _, err := os.Stat("/sys/fs/cgroup/cgroup.controllers"); err != nil {
		return nil, fmt.Errorf("cgroup v2 not available: %w", err)
	}

	// Kill any stale processes and remove the directory left over from a
	// previous run (e.g. if the daemon was killed with SIGKILL).
	cleanupStaleDir(parentPath)

	if err := os.MkdirAll(parentPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent cgroup: %w", err)
	}

	if err := os.WriteFile(
		filepath.Join(parentPath, "cgroup.subtree_control"),
		[]byte("+cpu +memory +io"),
		0o644,
	); err != nil {
		return nil, fmt.Errorf("failed to enable cgroup controllers: %w", err)
	}

	return &Manager{parentPath: parentPath}, nil
}

// ParentPath returns the parent cgroup directory this Manager created.
func (m *Manager) ParentPath() string {
	return m.parentPath
}

// Cleanup removes the parent cgroup directory. Intended for daemon
// shutdown and test teardown; individual job cgroups must already have
// been removed via Cgroup.Cleanup.
func (m *Manager) Cleanup() {
	if err := os.Remove(m.parentPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove parent cgroup", "path", m.parentPath, "error", err)
	}
}

// CreateCgroup creates a cgroup for the given job ID, writes the given
// resource limits, and opens a directory fd for use with
// SysProcAttr.CgroupFD so the child can be attached before it execs.
func (m *Manager) CreateCgroup(jobID string, limits Limits) (*Cgroup, error) {
	path := filepath.Join(m.parentPath, jobID)
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cgroup directory: %w", err)
	}

	if err := ApplyLimits(path, limits); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("failed to remove cgroup directory", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to apply resource limits: %w", err)
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("failed to remove cgroup directory", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to open cgroup directory fd: %w", err)
	}

	return &Cgroup{path: path, fd: fd}, nil
}

// ApplyLimits writes each present field of limits to its corresponding
// cgroup v2 interface file under path. Writes are independent: a failure
// on one file does not prevent the others from being attempted, but every
// failure is collected and returned (spec.md §4.1: "failure of one does
// not roll back earlier ones but must be reported").
func ApplyLimits(path string, limits Limits) error {
	var errs []error

	write := func(file, value string) {
		if err := os.WriteFile(filepath.Join(path, file), []byte(value), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", file, err))
		}
	}

	if limits.MemoryHigh != nil {
		write("memory.high", strconv.FormatUint(*limits.MemoryHigh, 10))
	}
	if limits.MemoryMax != nil {
		write("memory.max", strconv.FormatUint(*limits.MemoryMax, 10))
	}
	if limits.CPUMax != nil {
		quota := uint64(*limits.CPUMax) * cpuPeriodMicros / 100
		write("cpu.max", fmt.Sprintf("%d %d", quota, cpuPeriodMicros))
	}
	if limits.CPUWeight != nil {
		write("cpu.weight", strconv.FormatUint(uint64(*limits.CPUWeight), 10))
	}
	if limits.IOWeight != nil {
		write("io.weight", strconv.FormatUint(uint64(*limits.IOWeight), 10))
	}

	return errors.Join(errs...)
}

// FD returns the cgroup directory file descriptor for SysProcAttr.CgroupFD.
func (c *Cgroup) FD() int {
	return c.fd
}

// Kill writes "1" to cgroup.kill, terminating all processes in this cgroup.
// This is the recommended way for a supervisor to terminate a cgroup's
// processes; see https://www.kernel.org/doc/html/latest/admin-guide/cgroup-v2.html.
func (c *Cgroup) Kill() error {
	return os.WriteFile(filepath.Join(c.path, "cgroup.kill"), []byte("1"), 0o644)
}

// Cleanup closes the directory fd and removes the cgroup directory. A
// non-empty cgroup (a task still resident) may fail to rmdir; that failure
// is returned for the caller to log, per spec.md's "log and continue."
func (c *Cgroup) Cleanup() error {
	if err := unix.Close(c.fd); err != nil {
		return fmt.Errorf("failed to close cgroup fd: %w", err)
	}
	return os.Remove(c.path)
}

// cleanupStaleDir kills any processes in child cgroups and removes the
// directory tree. Errors are logged as warnings since this is best-effort.
func cleanupStaleDir(dir string) {
	if err := os.WriteFile(filepath.Join(dir, "cgroup.kill"), []byte("1"), 0o644); err != nil {
		// Directory doesn't exist yet. Nothing to clean up.
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			slog.Warn("failed to remove child cgroup", "path", entry.Name(), "error", err)
		}
	}
	if err := os.Remove(dir); err != nil {
		slog.Warn("failed to remove parent cgroup", "path", dir, "error", err)
	}
}
