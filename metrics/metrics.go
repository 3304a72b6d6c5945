// Package metrics exposes job lifecycle counters and gauges for scraping
// by Prometheus. It is served on a plain-HTTP listener, independent of
// the mTLS gRPC port used for the RPC surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsStartedTotal counts every successfully started job.
	JobsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teleworker_jobs_started_total",
		Help: "Total number of jobs started.",
	})

	// JobsTerminalTotal counts jobs reaching a terminal state, labeled by
	// the final status (success, failed, killed).
	JobsTerminalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teleworker_jobs_terminal_total",
		Help: "Total number of jobs reaching a terminal state, by status.",
	}, []string{"status"})

	// JobsRunning is the current number of jobs in the running state.
	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "teleworker_jobs_running",
		Help: "Current number of running jobs.",
	})

	// CgroupWriteFailuresTotal counts job starts whose cgroup setup failed:
	// creating the directory, writing a limit file, or opening the
	// directory fd. It is incremented once per failed setup.
	CgroupWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teleworker_cgroup_write_failures_total",
		Help: "Total number of job starts whose cgroup setup (directory, limit files, fd) failed.",
	})
)

// Handler returns the HTTP handler that serves the Prometheus exposition
// format, intended to be mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
