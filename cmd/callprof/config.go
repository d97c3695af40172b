package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	ServiceConfig struct {
		Environment string `env:"SENTRY_ENVIRONMENT"`
		Port        string `env:"PORT" env-default:"8080"`
		LogLevel    string `env:"LOG_LEVEL"`

		SentryDSN string `env:"SENTRY_DSN"`

		CallTreesKafkaBrokers []string `env:"CALL_TREES_KAFKA_BROKERS" env-separator:","`
		CallTreesKafkaTopic   string   `env:"CALL_TREES_KAFKA_TOPIC"`

		DiagnosticsLevel string        `env:"PROFILER_DIAGNOSTICS_LEVEL"`
		MaxDepth         int           `env:"PROFILER_MAX_DEPTH"`
		MinExecutionTime time.Duration `env:"PROFILER_MIN_EXECUTION_TIME"`
	}
)

var (
	serviceConfigs = map[string]ServiceConfig{
		"production": {
			LogLevel:              "info",
			CallTreesKafkaBrokers: []string{"callprof-kafka.service.us-central1.consul:9092"},
			CallTreesKafkaTopic:   "profiling-call-trees",
			DiagnosticsLevel:      "warn",
			MaxDepth:              64,
			MinExecutionTime:      100 * time.Microsecond,
		},
		"development": {
			LogLevel:              "debug",
			CallTreesKafkaBrokers: []string{"localhost:9092"},
			CallTreesKafkaTopic:   "profiling-call-trees",
			DiagnosticsLevel:      "debug",
		},
		"test": {
			LogLevel:         "disabled",
			DiagnosticsLevel: "debug",
		},
	}
)

// newConfig starts from the defaults of the environment named by
// SENTRY_ENVIRONMENT and applies the overrides found in the process
// environment.
func newConfig() (ServiceConfig, error) {
	envName := os.Getenv("SENTRY_ENVIRONMENT")
	if envName == "" {
		envName = "development"
	}
	config, exists := serviceConfigs[envName]
	if !exists {
		return ServiceConfig{}, fmt.Errorf("service config for environment %v does not exist", envName)
	}
	if err := cleanenv.ReadEnv(&config); err != nil {
		return ServiceConfig{}, err
	}
	config.Environment = envName
	return config, nil
}
