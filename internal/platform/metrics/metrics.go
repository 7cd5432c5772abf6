package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/driftwatch-labs/driftwatch-go/internal/platform/env"
)

// Sink receives one numeric point per metric per workflow run.
type Sink interface {
	Emit(ctx context.Context, namespace, name string, value float64, dims map[string]string) error
}

// Querier reads back operational metrics emitted by the inference service.
type Querier interface {
	// TrailingSums returns per-bucket sums of the metric over (end-window, end],
	// bucketed by step. Buckets with no points are omitted.
	TrailingSums(ctx context.Context, namespace, metric string, dims map[string]string, end time.Time, window, step time.Duration) ([]float64, error)
}

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		URL:    env.String("DRIFTWATCH_INFLUX_URL", "http://localhost:8086"),
		Token:  env.String("DRIFTWATCH_INFLUX_TOKEN", ""),
		Org:    env.String("DRIFTWATCH_INFLUX_ORG", "driftwatch"),
		Bucket: env.String("DRIFTWATCH_INFLUX_BUCKET", "monitoring"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("influx url is required")
	}
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("influx token is required")
	}
	if strings.TrimSpace(c.Org) == "" {
		return errors.New("influx org is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("influx bucket is required")
	}
	return nil
}
