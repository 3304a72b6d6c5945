// Program jobrunnerd is the teleworker gRPC server: it runs jobs under
// cgroup v2 resource limits on behalf of mTLS-authenticated clients.
package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/coreforge/jobrunner/auth"
	"github.com/coreforge/jobrunner/config"
	"github.com/coreforge/jobrunner/logging"
	"github.com/coreforge/jobrunner/metrics"
	pb "github.com/coreforge/jobrunner/proto/teleworker/v1"
	"github.com/coreforge/jobrunner/ratelimit"
	"github.com/coreforge/jobrunner/resources"
	"github.com/coreforge/jobrunner/server"
	"github.com/coreforge/jobrunner/worker"
)

func main() {
	logging.Init()

	rootCmd := &cobra.Command{
		Use:   "jobrunnerd",
		Short: "teleworker gRPC server",
		RunE:  runServer,
	}

	rootCmd.PersistentFlags().String("addr", ":50051", "Server address")
	rootCmd.PersistentFlags().String("ca", "certs/ca.crt", "Path to CA certificate PEM")
	rootCmd.PersistentFlags().String("cert", "certs/server.crt", "Path to server certificate PEM")
	rootCmd.PersistentFlags().String("key", "certs/server.key", "Path to server private key PEM")
	rootCmd.PersistentFlags().String("cgroup-root", "/sys/fs/cgroup/teleworker", "Parent cgroup v2 directory for jobs")
	rootCmd.PersistentFlags().String("metrics-addr", ":9090", "Prometheus metrics listen address")
	rootCmd.PersistentFlags().Float64("rate-limit", 0, "Per-owner StartJob rate limit, in requests/sec (0 disables)")
	rootCmd.PersistentFlags().Int("rate-burst", 1, "Per-owner StartJob burst allowance")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServer(cmd)
	if err != nil {
		return err
	}

	cgroupMgr, err := resources.NewManager(cfg.CgroupRoot)
	if err != nil {
		return fmt.Errorf("failed to configure cgroups (requires root): %w", err)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit, cfg.RateBurst)
	}

	w := worker.New(worker.Options{CgroupMgr: *cgroupMgr, Limiter: limiter})
	srv := server.New(w)

	listen, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	tlsConf, err := loadServerTLS(cfg)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(
		grpc.Creds(credentials.NewTLS(tlsConf)),
		grpc.UnaryInterceptor(auth.UnaryInterceptor),
		grpc.StreamInterceptor(auth.StreamInterceptor),
	)
	pb.RegisterTeleWorkerServer(grpcServer, srv)

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer metricsServer.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info(
			"received signal, shutting down",
			"signal", sig,
		)
		w.Shutdown()
		grpcServer.GracefulStop()
	}()

	slog.Info(
		"server listening",
		"addr", cfg.Addr,
	)
	if err := grpcServer.Serve(listen); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}

	slog.Info("server finished")
	return nil
}

func loadServerTLS(cfg config.Server) (*tls.Config, error) {
	caCert, err := os.ReadFile(cfg.CAPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	tlsConf, err := auth.ServerTLSConfig(caCert, cert)
	if err != nil {
		return nil, fmt.Errorf("failed to build TLS config: %w", err)
	}
	return tlsConf, nil
}
