package logutil

import (
	"github.com/rs/zerolog"
)

type LevelSampler struct {
	Level zerolog.Level
}

func (l LevelSampler) Sample(lvl zerolog.Level) bool {
	return lvl >= l.Level
}

// DiagnosticsLogger returns the logger profiling sessions report imbalanced
// frames and rejected activations to, keeping only events at level or above.
func DiagnosticsLogger(logger zerolog.Logger, level zerolog.Level) zerolog.Logger {
	return logger.With().Str("component", "profiler").Logger().Sample(LevelSampler{Level: level})
}
