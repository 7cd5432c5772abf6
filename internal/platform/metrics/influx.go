package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
}

func NewInfluxSink(cfg Config) (*InfluxSink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
	}, nil
}

func (s *InfluxSink) Close() {
	if s != nil && s.client != nil {
		s.client.Close()
	}
}

func (s *InfluxSink) Emit(ctx context.Context, namespace, name string, value float64, dims map[string]string) error {
	if s == nil || s.writeAPI == nil {
		return fmt.Errorf("influx sink not initialized")
	}
	namespace = strings.TrimSpace(namespace)
	name = strings.TrimSpace(name)
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if name == "" {
		return fmt.Errorf("metric name is required")
	}

	point := write.NewPointWithMeasurement(namespace).
		AddField(name, value).
		SetTime(time.Now().UTC())
	for k, v := range dims {
		point.AddTag(k, v)
	}
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("write point %s/%s: %w", namespace, name, err)
	}
	return nil
}

func (s *InfluxSink) TrailingSums(ctx context.Context, namespace, metric string, dims map[string]string, end time.Time, window, step time.Duration) ([]float64, error) {
	if s == nil || s.queryAPI == nil {
		return nil, fmt.Errorf("influx sink not initialized")
	}
	if window <= 0 || step <= 0 {
		return nil, fmt.Errorf("window and step must be positive")
	}

	var filters strings.Builder
	for k, v := range dims {
		fmt.Fprintf(&filters, "  |> filter(fn: (r) => r.%s == %q)\n", k, v)
	}

	query := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r._field == %q)
%s  |> aggregateWindow(every: %s, fn: sum, createEmpty: false)
`, s.bucket,
		end.Add(-window).UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		namespace, metric, filters.String(), step.String())

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("influx query failed: %w", err)
	}

	sums := make([]float64, 0)
	for result.Next() {
		if v, ok := result.Record().Value().(float64); ok {
			sums = append(sums, v)
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("read influx results: %w", result.Err())
	}
	return sums, nil
}
