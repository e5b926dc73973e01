// Command coordinator serves GET /search over a corpus mounted at
// CORPUS_ROOT, splitting every query across the workers listed in WORKERS.
//
// Example:
//
//	WORKERS=http://worker-0:8000,http://worker-1:8000 \
//	CORPUS_ROOT=/data \
//	coordinator --listen :8080
//
//	curl 'localhost:8080/search?q=needle'
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/grepmesh/internal/cluster"
	"github.com/dreamware/grepmesh/internal/config"
	"github.com/dreamware/grepmesh/internal/coordinator"
	"github.com/dreamware/grepmesh/internal/corpus"
	"github.com/dreamware/grepmesh/internal/logging"
	"github.com/dreamware/grepmesh/internal/telemetry"
)

// probeTimeout bounds one health probe of a worker.
const probeTimeout = 2 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configFile string
	listen     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Fan substring-count queries out to grepmesh workers",
		Long: `coordinator loads the corpus file list once at startup, then answers
GET /search?q=<pattern> by partitioning the list across the configured
workers, calling them concurrently and merging their per-file counts.

Settings come from an optional YAML file, then the environment
(WORKERS, BATCH_SIZE, WORKER_TIMEOUT, PARALLEL_CALLS, CORPUS_ROOT, ...),
then flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", cfg.Coordinator.Listen)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, ln, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&f.configFile, "config", "", "YAML config file")
	cmd.Flags().StringVar(&f.listen, "listen", "", "listen address (overrides COORDINATOR_ADDR)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	})
	return cmd
}

func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.listen != "" {
		cfg.Coordinator.Listen = f.listen
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
		if err := cfg.Log.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// run serves on ln until ctx is done. ln is closed on return.
func run(ctx context.Context, cfg *config.Config, ln net.Listener, logOut io.Writer) error {
	defer ln.Close()

	logger := logging.Setup(cfg.Log, logOut).With("service", "coordinator")
	slog.SetDefault(logger)

	c, err := loadCorpus(cfg.Corpus, logger)
	if err != nil {
		return err
	}

	pool, err := coordinator.NewEndpointPool(cfg.Coordinator.Workers)
	if err != nil {
		return err
	}

	recorder, err := telemetry.NewRecorder(telemetry.RecorderConfig{
		Namespace:   "coord",
		LatencyName: "total_latency_seconds",
		Info:        map[string]string{"workers": strings.Join(pool.Endpoints(), ",")},
	})
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	dispatcher := coordinator.NewDispatcher(
		cluster.NewClient(cfg.Coordinator.WorkerTimeout.Std()),
		pool,
		coordinator.DispatcherConfig{
			Parallel: cfg.Coordinator.Parallel(),
			Timeout:  cfg.Coordinator.WorkerTimeout.Std(),
		},
		logger,
	)
	service := coordinator.NewService(c, dispatcher,
		coordinator.WithBatchSize(cfg.Coordinator.BatchSize),
		coordinator.WithObserver(recorder),
		coordinator.WithServiceLogger(logger),
	)

	monitor := coordinator.NewHealthMonitor(cfg.Coordinator.HealthInterval.Std(), cluster.NewClient(probeTimeout), logger)
	go monitor.Start(ctx, pool.Endpoints())
	defer monitor.Stop()

	logger.Info("coordinator ready",
		"files", c.Len(), "workers", pool.Len(),
		"parallel_calls", dispatcher.Parallel(), "batch_size", cfg.Coordinator.BatchSize,
		"worker_timeout", dispatcher.Timeout())

	server := coordinator.NewServer(service, pool, monitor, recorder, logger)
	return cluster.Serve(ctx, ln, server.Routes(), logger)
}

// loadCorpus lists the corpus. A missing root is not fatal: every query then
// fails with "corpus is empty or not mounted" until the process is restarted
// with the volume in place.
func loadCorpus(cfg config.CorpusConfig, logger *slog.Logger) (*corpus.Corpus, error) {
	c, err := corpus.Load(cfg.Root, cfg.Include, cfg.Exclude)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("corpus root missing, serving an empty corpus", "root", cfg.Root)
		return corpus.New(nil), nil
	}
	if err != nil {
		return nil, err
	}
	if c.Empty() {
		logger.Warn("corpus is empty", "root", cfg.Root, "include", cfg.Include)
	}
	return c, nil
}
