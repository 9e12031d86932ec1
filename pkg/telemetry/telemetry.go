// Package telemetry implements the contractor.Recorder and search.Recorder
// interfaces as OpenTelemetry metric instruments: shortcuts inserted,
// witness searches executed, nodes settled per query, and preprocessing and
// query duration, as a structured counterpart to the ad-hoc log.Printf
// summaries those packages already emit.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Meter bundles every instrument contractor.Recorder and search.Recorder
// need. Each method is safe for concurrent use (OTel instruments
// are), matching the concurrency model of the packages that hold one.
type Meter struct {
	provider *sdkmetric.MeterProvider

	shortcutsInserted  metric.Int64Counter
	witnessSearches    metric.Int64Counter
	preprocessDuration metric.Float64Histogram

	nodesSettled  metric.Int64Histogram
	queryDuration metric.Float64Histogram
}

// NewStdoutMeter builds a Meter that periodically exports to stdout —
// enough for the CLI boundary (cmd/chroute) without standing up a
// collector. interval <= 0 uses the SDK's default periodic reader interval.
func NewStdoutMeter(interval time.Duration) (*Meter, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithoutTimestamps())
	if err != nil {
		return nil, err
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(interval))
	}
	reader := sdkmetric.NewPeriodicReader(exporter, readerOpts...)
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return newMeter(provider)
}

func newMeter(provider *sdkmetric.MeterProvider) (*Meter, error) {
	m := provider.Meter("github.com/azybler/chroute")

	shortcutsInserted, err := m.Int64Counter("chroute.contractor.shortcuts_inserted",
		metric.WithDescription("shortcuts inserted during contraction"))
	if err != nil {
		return nil, err
	}
	witnessSearches, err := m.Int64Counter("chroute.contractor.witness_searches",
		metric.WithDescription("witness searches executed during contraction"))
	if err != nil {
		return nil, err
	}
	preprocessDuration, err := m.Float64Histogram("chroute.contractor.preprocessing_duration_seconds",
		metric.WithDescription("wall-clock time to contract a graph"))
	if err != nil {
		return nil, err
	}
	nodesSettled, err := m.Int64Histogram("chroute.search.nodes_settled",
		metric.WithDescription("nodes settled per query"))
	if err != nil {
		return nil, err
	}
	queryDuration, err := m.Float64Histogram("chroute.search.query_duration_seconds",
		metric.WithDescription("wall-clock time per query"))
	if err != nil {
		return nil, err
	}

	return &Meter{
		provider:           provider,
		shortcutsInserted:  shortcutsInserted,
		witnessSearches:    witnessSearches,
		preprocessDuration: preprocessDuration,
		nodesSettled:       nodesSettled,
		queryDuration:      queryDuration,
	}, nil
}

// Shutdown flushes and stops the underlying provider's readers.
func (m *Meter) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// ShortcutsInserted implements contractor.Recorder.
func (m *Meter) ShortcutsInserted(n int) {
	m.shortcutsInserted.Add(context.Background(), int64(n))
}

// WitnessSearchExecuted implements contractor.Recorder.
func (m *Meter) WitnessSearchExecuted() {
	m.witnessSearches.Add(context.Background(), 1)
}

// NodesSettled implements both contractor.Recorder and search.Recorder —
// the contractor reports the nodes its witness searches reached for each
// contracted node, Search reports settled nodes per query; both are
// meaningful as a histogram.
func (m *Meter) NodesSettled(n int) {
	m.nodesSettled.Record(context.Background(), int64(n))
}

// PreprocessingDuration implements contractor.Recorder.
func (m *Meter) PreprocessingDuration(d time.Duration) {
	m.preprocessDuration.Record(context.Background(), d.Seconds())
}

// QueryDuration implements search.Recorder.
func (m *Meter) QueryDuration(d time.Duration) {
	m.queryDuration.Record(context.Background(), d.Seconds())
}
