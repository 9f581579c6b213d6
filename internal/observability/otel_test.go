package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withManualReader installs a meter provider backed by a manual reader for
// the duration of the test.
func withManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	previous := otel.GetMeterProvider()
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(previous) })
	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumTotal(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInitMeterProvider(t *testing.T) {
	previous := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(previous) })

	mp, err := InitMeterProvider(Config{ServiceName: "preppin-test", ServiceVersion: "1.0.0", Environment: "test"})
	require.NoError(t, err)
	require.NotNil(t, mp.provider)
	require.NotNil(t, mp.exporter)
	assert.NoError(t, mp.Shutdown(context.Background(), discardLogger()))
}

func TestValidationMetricsRecord(t *testing.T) {
	reader := withManualReader(t)
	m, err := InitValidationMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.Record(ctx, "UserCreateInput", 2*time.Millisecond, nil)
	m.Record(ctx, "UserCreateInput", 3*time.Millisecond, []string{"invalid_type", "unrecognized_keys"})

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumTotal(t, data["preppin.validation.requests"]))
	assert.Equal(t, int64(2), sumTotal(t, data["preppin.validation.issues"]))

	hist, ok := data["preppin.validation.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 5.0, hist.DataPoints[0].Sum, 0.001)
}

func TestQueryMetricsRecord(t *testing.T) {
	reader := withManualReader(t)
	m, err := InitQueryMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.Record(ctx, "InventoryItem", time.Millisecond, 4, nil)
	m.Record(ctx, "InventoryItem", time.Millisecond, 0, errors.New("boom"))

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumTotal(t, data["preppin.query.count"]))
	rows, ok := data["preppin.query.rows"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, rows.DataPoints, 1)
	assert.Equal(t, uint64(1), rows.DataPoints[0].Count)
	assert.Equal(t, int64(4), rows.DataPoints[0].Sum)
}

func TestAuthMetricsRecord(t *testing.T) {
	reader := withManualReader(t)
	m, err := InitAuthMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSuccess(ctx)
	m.RecordFailure(ctx, "missing_token")
	m.RecordFailure(ctx, "invalid_token")

	data := collect(t, reader)
	assert.Equal(t, int64(3), sumTotal(t, data["preppin.auth.attempts"]))
	assert.Equal(t, int64(2), sumTotal(t, data["preppin.auth.failures"]))
}

func TestNilMetricsAreNoops(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		(*ValidationMetrics)(nil).Record(ctx, "X", time.Millisecond, []string{"custom"})
		(*QueryMetrics)(nil).Record(ctx, "X", time.Millisecond, 1, nil)
		(*AuthMetrics)(nil).RecordSuccess(ctx)
		(*AuthMetrics)(nil).RecordFailure(ctx, "missing_token")
	})
}

func TestParseOTLPProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    otlpProtocol
		wantErr bool
	}{
		{in: "", want: protocolGRPC},
		{in: "GRPC", want: protocolGRPC},
		{in: "http", want: protocolHTTP},
		{in: "http/protobuf", want: protocolHTTP},
		{in: "thrift", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOTLPProtocol(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTransport(t *testing.T) {
	tr, err := newTransport(OTLPExporterConfig{
		Endpoint:         "https://collector.example.com:4318",
		Protocol:         "http/protobuf",
		Compression:      "gzip",
		RetryEnabled:     true,
		RetryMaxAttempts: 3,
	})
	require.NoError(t, err)
	assert.True(t, tr.endpointURL)
	assert.True(t, tr.gzip)
	assert.True(t, tr.retry)
	require.NotNil(t, tr.tls)

	tr, err = newTransport(OTLPExporterConfig{Endpoint: "localhost:4317", Insecure: true})
	require.NoError(t, err)
	assert.False(t, tr.endpointURL)
	assert.Nil(t, tr.tls)
	assert.False(t, tr.retry)
}

func TestBuildTLSConfig(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.pem")
	require.NoError(t, os.WriteFile(bogus, []byte("not-a-cert"), 0o600))

	tests := []struct {
		name string
		cfg  OTLPExporterConfig
		want string
	}{
		{name: "missing ca", cfg: OTLPExporterConfig{TLSCertFile: filepath.Join(dir, "missing.pem")}, want: "failed to read OTLP TLS CA file"},
		{name: "invalid ca", cfg: OTLPExporterConfig{TLSCertFile: bogus}, want: "failed to parse OTLP TLS CA file"},
		{name: "cert without key", cfg: OTLPExporterConfig{TLSClientCertFile: bogus}, want: "OTLP TLS client cert and key must both be set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTLSConfig(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTraceSamplerForRatio(t *testing.T) {
	params := func(ctx context.Context, id byte) sdktrace.SamplingParameters {
		return sdktrace.SamplingParameters{ParentContext: ctx, TraceID: trace.TraceID{id}, Name: "test"}
	}
	bg := context.Background()

	assert.Equal(t, sdktrace.Drop, traceSamplerForRatio(0).ShouldSample(params(bg, 1)).Decision)
	assert.Equal(t, sdktrace.RecordAndSample, traceSamplerForRatio(1).ShouldSample(params(bg, 2)).Decision)

	parent := func(flags trace.TraceFlags) context.Context {
		return trace.ContextWithSpanContext(bg, trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{9},
			SpanID:     trace.SpanID{1},
			TraceFlags: flags,
			Remote:     true,
		}))
	}
	mid := traceSamplerForRatio(0.5)
	assert.Equal(t, sdktrace.RecordAndSample, mid.ShouldSample(params(parent(trace.FlagsSampled), 3)).Decision)
	assert.Equal(t, sdktrace.Drop, mid.ShouldSample(params(parent(0), 4)).Decision)
}
