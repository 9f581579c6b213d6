package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "preppin"

// ValidationMetrics records schema validation traffic.
type ValidationMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	issues   metric.Int64Counter
}

// InitValidationMetrics registers the validation instruments on the global
// meter provider.
func InitValidationMetrics() (*ValidationMetrics, error) {
	meter := otel.Meter(meterName)

	requests, err := meter.Int64Counter(
		"preppin.validation.requests",
		metric.WithDescription("Validation requests by schema and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation request counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		"preppin.validation.duration",
		metric.WithDescription("Time spent validating a payload"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation duration histogram: %w", err)
	}
	issues, err := meter.Int64Counter(
		"preppin.validation.issues",
		metric.WithDescription("Validation issues by code"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation issue counter: %w", err)
	}
	return &ValidationMetrics{requests: requests, duration: duration, issues: issues}, nil
}

// Record counts one validation of schema. codes lists the issue codes of a
// failed validation and is empty on success.
func (m *ValidationMetrics) Record(ctx context.Context, schema string, elapsed time.Duration, codes []string) {
	if m == nil {
		return
	}
	outcome := "ok"
	if len(codes) > 0 {
		outcome = "invalid"
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("schema", schema),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attribute.String("schema", schema)))
	for _, code := range codes {
		m.issues.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
	}
}

// QueryMetrics records findMany executions against the store.
type QueryMetrics struct {
	queries  metric.Int64Counter
	duration metric.Float64Histogram
	rows     metric.Int64Histogram
}

// InitQueryMetrics registers the query instruments.
func InitQueryMetrics() (*QueryMetrics, error) {
	meter := otel.Meter(meterName)

	queries, err := meter.Int64Counter(
		"preppin.query.count",
		metric.WithDescription("findMany queries by entity and outcome"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		"preppin.query.duration",
		metric.WithDescription("findMany latency including row decoding"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query duration histogram: %w", err)
	}
	rows, err := meter.Int64Histogram(
		"preppin.query.rows",
		metric.WithDescription("Rows returned per findMany"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query rows histogram: %w", err)
	}
	return &QueryMetrics{queries: queries, duration: duration, rows: rows}, nil
}

// Record counts one findMany on entity.
func (m *QueryMetrics) Record(ctx context.Context, entity string, elapsed time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("entity", entity), attribute.String("outcome", outcome))
	m.queries.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	if err == nil {
		m.rows.Record(ctx, int64(rows), metric.WithAttributes(attribute.String("entity", entity)))
	}
}

// AuthMetrics records bearer token verification.
type AuthMetrics struct {
	attempts metric.Int64Counter
	failures metric.Int64Counter
}

// InitAuthMetrics registers the authentication instruments.
func InitAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter(meterName)

	attempts, err := meter.Int64Counter(
		"preppin.auth.attempts",
		metric.WithDescription("Authentication attempts by result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth attempts counter: %w", err)
	}
	failures, err := meter.Int64Counter(
		"preppin.auth.failures",
		metric.WithDescription("Authentication failures by reason"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth failures counter: %w", err)
	}
	return &AuthMetrics{attempts: attempts, failures: failures}, nil
}

// RecordSuccess counts an accepted token.
func (m *AuthMetrics) RecordSuccess(ctx context.Context) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
}

// RecordFailure counts a rejected request. reason is a short stable label
// such as missing_token or invalid_token.
func (m *AuthMetrics) RecordFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failure")))
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
