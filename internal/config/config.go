// Package config loads grepmesh settings.
//
// Precedence, lowest first:
//  1. Built-in defaults
//  2. YAML file given with --config
//  3. Environment variables (WORKERS, BATCH_SIZE, ...)
//  4. Command-line flags, applied by the caller
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/grepmesh/internal/logging"
)

// Config is the full settings tree shared by both binaries.
type Config struct {
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Worker      WorkerConfig      `yaml:"worker"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Log         logging.Config    `yaml:"log"`
}

// CoordinatorConfig configures query dispatch.
type CoordinatorConfig struct {
	Listen string `yaml:"listen"`
	// Workers are the worker base URLs, fixed for the process lifetime.
	Workers []string `yaml:"workers"`
	// BatchSize > 0 sends fixed-size chunks; 0 splits evenly across workers.
	BatchSize int `yaml:"batch_size"`
	// WorkerTimeout bounds each worker call.
	WorkerTimeout Duration `yaml:"worker_timeout"`
	// ParallelCalls caps worker calls in flight. 0 means one per worker.
	ParallelCalls  int      `yaml:"parallel_calls"`
	HealthInterval Duration `yaml:"health_interval"`
}

// WorkerConfig configures a scanning worker.
type WorkerConfig struct {
	Listen    string `yaml:"listen"`
	Threads   int    `yaml:"threads"`
	Algorithm string `yaml:"algorithm"`
}

// CorpusConfig says where the searchable files are.
type CorpusConfig struct {
	Root    string   `yaml:"root"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Duration is a time.Duration that also accepts a bare number of seconds,
// so WORKER_TIMEOUT=120 and worker_timeout: 2m mean the same.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ParseDuration reads "90", "1.5" (seconds) or any time.ParseDuration form.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Coordinator: CoordinatorConfig{
			Listen:         ":8080",
			Workers:        []string{"http://worker:8000"},
			WorkerTimeout:  Duration(120 * time.Second),
			HealthInterval: Duration(10 * time.Second),
		},
		Worker: WorkerConfig{
			Listen:    ":8000",
			Threads:   8,
			Algorithm: "brute-force",
		},
		Corpus: CorpusConfig{
			Root:    "/data",
			Include: []string{"**/*.txt"},
		},
		Log: logging.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes path over the current values. Keys absent from the file
// keep their defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides reads the deployment's environment variables. getenv is
// os.Getenv outside tests.
func (c *Config) applyEnvOverrides(getenv func(string) string) error {
	if v := getenv("WORKERS"); v != "" {
		c.Coordinator.Workers = SplitList(v)
	}
	if v := getenv("COORDINATOR_ADDR"); v != "" {
		c.Coordinator.Listen = v
	}
	if v := getenv("WORKER_ADDR"); v != "" {
		c.Worker.Listen = v
	}
	if v := getenv("SEARCH_ALGORITHM"); v != "" {
		c.Worker.Algorithm = v
	}
	if v := getenv("CORPUS_ROOT"); v != "" {
		c.Corpus.Root = v
	}
	if v := getenv("CORPUS_INCLUDE"); v != "" {
		c.Corpus.Include = SplitList(v)
	}
	if v := getenv("CORPUS_EXCLUDE"); v != "" {
		c.Corpus.Exclude = SplitList(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"BATCH_SIZE", &c.Coordinator.BatchSize},
		{"PARALLEL_CALLS", &c.Coordinator.ParallelCalls},
		{"THREADS_PER_WORKER", &c.Worker.Threads},
	}
	for _, e := range ints {
		v := getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", e.name, v)
		}
		*e.dst = n
	}

	durations := []struct {
		name string
		dst  *Duration
	}{
		{"WORKER_TIMEOUT", &c.Coordinator.WorkerTimeout},
		{"HEALTH_INTERVAL", &c.Coordinator.HealthInterval},
	}
	for _, e := range durations {
		v := getenv(e.name)
		if v == "" {
			continue
		}
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
		*e.dst = Duration(d)
	}
	return nil
}

// Validate checks ranges. An unknown algorithm name is not an error; the
// worker falls back to brute force.
func (c *Config) Validate() error {
	if len(c.Coordinator.Workers) == 0 {
		return fmt.Errorf("coordinator.workers must list at least one worker URL")
	}
	for _, w := range c.Coordinator.Workers {
		if !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") {
			return fmt.Errorf("worker URL must start with http:// or https://, got %q", w)
		}
	}
	if c.Coordinator.BatchSize < 0 {
		return fmt.Errorf("batch_size must be non-negative, got %d", c.Coordinator.BatchSize)
	}
	if c.Coordinator.ParallelCalls < 0 {
		return fmt.Errorf("parallel_calls must be non-negative, got %d", c.Coordinator.ParallelCalls)
	}
	if c.Coordinator.WorkerTimeout <= 0 {
		return fmt.Errorf("worker_timeout must be positive, got %s", c.Coordinator.WorkerTimeout.Std())
	}
	if c.Coordinator.HealthInterval <= 0 {
		return fmt.Errorf("health_interval must be positive, got %s", c.Coordinator.HealthInterval.Std())
	}
	if c.Worker.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Worker.Threads)
	}
	if c.Corpus.Root == "" {
		return fmt.Errorf("corpus.root must not be empty")
	}
	return c.Log.Validate()
}

// Parallel returns the effective in-flight limit: ParallelCalls, or the
// number of workers when unset.
func (c CoordinatorConfig) Parallel() int {
	if c.ParallelCalls > 0 {
		return c.ParallelCalls
	}
	return max(len(c.Workers), 1)
}

// SplitList splits a comma-separated list, trimming blanks and dropping
// empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Encode writes the configuration as YAML, in the same shape Load reads.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
