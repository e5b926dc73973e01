// Command worker counts pattern occurrences in the files a coordinator
// sends it, using the algorithm named by SEARCH_ALGORITHM.
//
// Example:
//
//	SEARCH_ALGORITHM=kmp THREADS_PER_WORKER=16 worker --listen :8000
//
//	curl -XPOST localhost:8000/search -d '{"q":"needle","files":["/data/a.txt"]}'
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dreamware/grepmesh/internal/cluster"
	"github.com/dreamware/grepmesh/internal/config"
	"github.com/dreamware/grepmesh/internal/logging"
	"github.com/dreamware/grepmesh/internal/matcher"
	"github.com/dreamware/grepmesh/internal/scanner"
	"github.com/dreamware/grepmesh/internal/telemetry"
	"github.com/dreamware/grepmesh/internal/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configFile string
	listen     string
	logLevel   string
	algorithm  string
	threads    int
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Scan files for a pattern on behalf of a grepmesh coordinator",
		Long: `worker answers POST /search {"q", "files"} with the per-file count of
non-overlapping occurrences of q, case-insensitively. Files are scanned
concurrently on a fixed-size pool; unreadable files count as zero.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", cfg.Worker.Listen)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, ln, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&f.configFile, "config", "", "YAML config file")
	cmd.Flags().StringVar(&f.listen, "listen", "", "listen address (overrides WORKER_ADDR)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", "", fmt.Sprintf("one of %v (overrides SEARCH_ALGORITHM)", matcher.Names()))
	cmd.Flags().IntVar(&f.threads, "threads", 0, "scan pool size (overrides THREADS_PER_WORKER)")

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
		cfg.Worker.Listen = f.listen
	}
	if f.algorithm != "" {
		cfg.Worker.Algorithm = f.algorithm
	}
	if f.threads != 0 {
		cfg.Worker.Threads = f.threads
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run serves on ln until ctx is done. ln is closed on return.
func run(ctx context.Context, cfg *config.Config, ln net.Listener, logOut io.Writer) error {
	defer ln.Close()

	logger := logging.Setup(cfg.Log, logOut).With("service", "worker")
	slog.SetDefault(logger)

	algo, ok := matcher.Lookup(cfg.Worker.Algorithm)
	if !ok {
		logger.Warn("unknown search algorithm, using brute force",
			"requested", cfg.Worker.Algorithm, "known", matcher.Names())
	}

	s, err := scanner.New(algo, scanner.WithThreads(cfg.Worker.Threads), scanner.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Release()

	recorder, err := telemetry.NewRecorder(telemetry.RecorderConfig{
		Namespace: "worker",
		Labels:    map[string]string{"algorithm": algo.Name()},
		Info:      map[string]string{"algorithm": algo.Name()},
	})
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	logger.Info("worker ready", "algorithm", algo.Name(), "threads", s.Threads())

	server := worker.NewServer(s, recorder, logger)
	return cluster.Serve(ctx, ln, server.Routes(), logger)
}
