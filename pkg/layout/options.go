package layout

import (
	"log/slog"
	"runtime"
)

// config holds load and extract settings.
type config struct {
	workers  int
	compress bool
	filter   string
	logger   *slog.Logger
}

// Option configures LoadInputs and Extract.
type Option func(*config)

// WithWorkers bounds the number of files processed at once.
// Values below 1 fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithCompression deflates loaded files before they reach the writer.
func WithCompression(compress bool) Option {
	return func(c *config) {
		c.compress = compress
	}
}

// WithFilter restricts extraction to entries whose '/' separated path
// matches the path.Match pattern.
func WithFilter(pattern string) Option {
	return func(c *config) {
		c.filter = pattern
	}
}

// WithLogger sets a logger for warnings and progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	return cfg
}
