package dat2

// config holds codec settings shared by the reader and writer.
type config struct {
	convention TreeSizeConvention
}

// Option configures decoding or encoding.
type Option func(*config)

// WithTreeSizeConvention selects how tree_size is read and written.
// The default is TreeSizeCountsSelf.
func WithTreeSizeConvention(c TreeSizeConvention) Option {
	return func(cfg *config) {
		cfg.convention = c
	}
}

func newConfig(opts []Option) config {
	cfg := config{convention: TreeSizeCountsSelf}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
