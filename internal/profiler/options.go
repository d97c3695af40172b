package profiler

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type config struct {
	clock          func() time.Time
	logger         zerolog.Logger
	maxDepth       int
	minExecutionNS uint64
}

// Option configures a profiling session.
type Option func(config) config

func defaultConfig() config {
	return config{
		clock:  time.Now,
		logger: log.Logger,
	}
}

func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return cfg
}

// WithClock replaces the wall clock used to time frames.
func WithClock(clock func() time.Time) Option {
	return func(cfg config) config {
		if clock != nil {
			cfg.clock = clock
		}
		return cfg
	}
}

// WithLogger sets the logger receiving diagnostics about imbalanced frames
// and rejected activations.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg config) config {
		cfg.logger = logger
		return cfg
	}
}

// WithMinExecutionTime drops frames that ran for less than d once they are
// stopped. The root frame is always kept.
func WithMinExecutionTime(d time.Duration) Option {
	return func(cfg config) config {
		if d > 0 {
			cfg.minExecutionNS = uint64(d.Nanoseconds())
		}
		return cfg
	}
}

// WithMaxDepth limits the number of recorded levels, root included. Frames
// started deeper are not recorded.
func WithMaxDepth(depth int) Option {
	return func(cfg config) config {
		if depth > 0 {
			cfg.maxDepth = depth
		}
		return cfg
	}
}

func (cfg config) nowNS() uint64 {
	return uint64(cfg.clock().UnixNano())
}
