// Program jobrunctl is the CLI client to send jobs to jobrunnerd.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coreforge/jobrunner/auth"
	"github.com/coreforge/jobrunner/client"
	"github.com/coreforge/jobrunner/config"
	"github.com/coreforge/jobrunner/job"
	"github.com/coreforge/jobrunner/logging"
	"github.com/coreforge/jobrunner/resources"
)

func main() {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "jobrunctl",
		Short: "Run commands via jobrunnerd",
	}
	rootCmd.SetContext(ctx)

	rootCmd.PersistentFlags().String("addr", "127.0.0.1:50051", "Server address")
	rootCmd.PersistentFlags().String("ca", "certs/ca.crt", "Path to CA certificate PEM")

	// We default to running `jobrunctl` as the user alice using the alice key and cert.
	rootCmd.PersistentFlags().String("cert", "certs/alice.crt", "Path to client certificate PEM")
	rootCmd.PersistentFlags().String("key", "certs/alice.key", "Path to client private key PEM")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")

	startCmd := &cobra.Command{
		Use:   "start -- <command> [args...]",
		Short: "Run a command via jobrunnerd",
		Args:  cobra.MinimumNArgs(1),
		RunE:  cmdStart,
	}
	startCmd.Flags().Uint64Var(new(uint64), "memory-high-bytes", 0, "cgroup memory.high, in bytes (0 = unset)")
	startCmd.Flags().Uint64Var(new(uint64), "memory-max-bytes", 0, "cgroup memory.max, in bytes (0 = unset)")
	startCmd.Flags().Uint32Var(new(uint32), "cpu-max-percent", 0, "cgroup cpu.max, as a percentage of one CPU (0 = unset)")
	startCmd.Flags().Uint32Var(new(uint32), "cpu-weight", 0, "cgroup cpu.weight, 1-10000 (0 = unset)")
	startCmd.Flags().Uint32Var(new(uint32), "io-weight", 0, "cgroup io.weight, 1-10000 (0 = unset)")

	statusCmd := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Get the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdStatus,
	}

	stopCmd := &cobra.Command{
		Use:   "stop <job_id>",
		Short: "Stop a running job",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdStop,
	}

	logsCmd := &cobra.Command{
		Use:   "logs <job_id>",
		Short: "Stream the output of a job",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdLogs,
	}

	rootCmd.AddCommand(startCmd, statusCmd, stopCmd, logsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// cmdStart sends the command to the gRPC server.
func cmdStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient(cmd)
	if err != nil {
		return err
	}

	slog.Info(
		"connecting",
		"addr", cfg.Addr,
	)

	teleClient, err := newTLSClient(cfg)
	if err != nil {
		return err
	}
	defer teleClient.Close()

	command := args[0]
	commandArgs := args[1:]
	slog.Info(
		"starting job",
		"command", command,
		"arguments", commandArgs,
	)

	jobLimits, err := limitsFromFlags(cmd)
	if err != nil {
		return err
	}

	jobID, err := teleClient.StartJob(cmd.Context(), command, commandArgs, jobLimits)
	if err != nil {
		return err
	}

	slog.Info(
		"job started",
		"job_id", jobID,
	)

	output := struct {
		JobID string `json:"job_id"`
	}{JobID: jobID}

	b, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job ID: %w", err)
	}
	fmt.Println(string(b))

	return nil
}

func limitsFromFlags(cmd *cobra.Command) (resources.Limits, error) {
	var out resources.Limits
	if v, err := cmd.Flags().GetUint64("memory-high-bytes"); err == nil && v != 0 {
		out.MemoryHigh = &v
	}
	if v, err := cmd.Flags().GetUint64("memory-max-bytes"); err == nil && v != 0 {
		out.MemoryMax = &v
	}
	if v, err := cmd.Flags().GetUint32("cpu-max-percent"); err == nil && v != 0 {
		out.CPUMax = &v
	}
	if v, err := cmd.Flags().GetUint32("cpu-weight"); err == nil && v != 0 {
		out.CPUWeight = &v
	}
	if v, err := cmd.Flags().GetUint32("io-weight"); err == nil && v != 0 {
		out.IOWeight = &v
	}
	return out, nil
}

func cmdStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient(cmd)
	if err != nil {
		return err
	}

	teleClient, err := newTLSClient(cfg)
	if err != nil {
		return err
	}
	defer teleClient.Close()

	jobStatus, exitCode, err := teleClient.GetJobStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	output := struct {
		JobID    string `json:"job_id"`
		Status   string `json:"status"`
		ExitCode *int32 `json:"exit_code,omitempty"`
	}{
		JobID:    args[0],
		Status:   statusString(jobStatus),
		ExitCode: exitCode,
	}

	b, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Println(string(b))

	return nil
}

func cmdLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient(cmd)
	if err != nil {
		return err
	}

	teleClient, err := newTLSClient(cfg)
	if err != nil {
		return err
	}
	defer teleClient.Close()

	return teleClient.StreamOutput(cmd.Context(), args[0], os.Stdout)
}

func cmdStop(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient(cmd)
	if err != nil {
		return err
	}

	teleClient, err := newTLSClient(cfg)
	if err != nil {
		return err
	}
	defer teleClient.Close()

	return teleClient.StopJob(cmd.Context(), args[0])
}

func newTLSClient(cfg config.Client) (*client.Client, error) {
	caCert, err := os.ReadFile(cfg.CAPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	tlsConf, err := auth.ClientTLSConfig(caCert, cert, "jobrunnerd")
	if err != nil {
		return nil, fmt.Errorf("failed to build TLS config: %w", err)
	}

	return client.New(cfg.Addr, tlsConf)
}

func statusString(s job.Status) string {
	switch s {
	case job.StatusUnspecified:
		return "unspecified"
	case job.StatusSubmitted:
		return "submitted"
	case job.StatusRunning:
		return "running"
	case job.StatusSuccess:
		return "success"
	case job.StatusFailed:
		return "failed"
	case job.StatusKilled:
		return "killed"
	default:
		return "unknown"
	}
}
