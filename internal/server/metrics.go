package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/labcheck/pkg/analysis"
)

const instrumentationName = "github.com/fyrsmithlabs/labcheck/internal/server"

// Metrics holds the server's metric instruments. Instruments use the global
// meter provider, so without an SDK installed every recording is a no-op.
type Metrics struct {
	meter            metric.Meter
	logger           *zap.Logger
	requestsTotal    metric.Int64Counter
	requestDur       metric.Float64Histogram
	analysesTotal    metric.Int64Counter
	analysisDur      metric.Float64Histogram
	analysisFindings metric.Int64Histogram
	remoteFailures   metric.Int64Counter
}

// NewMetrics creates the server's metric instruments.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.requestsTotal, err = m.meter.Int64Counter(
		"labcheck.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method, endpoint, and status code."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = m.meter.Float64Histogram(
		"labcheck.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, endpoint, and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.analysesTotal, err = m.meter.Int64Counter(
		"labcheck.analyses_total",
		metric.WithDescription("Total analyses labeled by completion status (COMPLETE, PARTIAL_LOCAL_ONLY, FAILED)."),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		m.logger.Warn("failed to create analyses counter", zap.Error(err))
	}

	m.analysisDur, err = m.meter.Float64Histogram(
		"labcheck.analysis_duration_seconds",
		metric.WithDescription("End-to-end analysis duration in seconds, labeled by status. Remote-enabled runs dominate the upper buckets."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0),
	)
	if err != nil {
		m.logger.Warn("failed to create analysis duration histogram", zap.Error(err))
	}

	m.analysisFindings, err = m.meter.Int64Histogram(
		"labcheck.analysis_findings",
		metric.WithDescription("Findings per analysis. A sustained rise may indicate a new rule misfiring."),
		metric.WithUnit("{finding}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		m.logger.Warn("failed to create findings histogram", zap.Error(err))
	}

	m.remoteFailures, err = m.meter.Int64Counter(
		"labcheck.remote_failures_total",
		metric.WithDescription("Analyses that degraded to local-only results after a remote provider failure."),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		m.logger.Warn("failed to create remote failures counter", zap.Error(err))
	}
}

// Middleware returns an Echo middleware that records HTTP request metrics.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			// Routes are fixed, so the raw path is safe as a label.
			attrs := []attribute.KeyValue{
				attribute.String("method", req.Method),
				attribute.String("endpoint", c.Path()),
				attribute.Int("status", c.Response().Status),
			}

			ctx := req.Context()
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
			}

			return err
		}
	}
}

// RecordAnalysis records the outcome of a completed analysis.
func (m *Metrics) RecordAnalysis(ctx context.Context, result *analysis.Result) {
	if result == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", string(result.Status)))
	if m.analysesTotal != nil {
		m.analysesTotal.Add(ctx, 1, attrs)
	}
	if m.analysisDur != nil {
		m.analysisDur.Record(ctx, result.Duration.Seconds(), attrs)
	}
	if m.analysisFindings != nil {
		m.analysisFindings.Record(ctx, int64(len(result.Findings)), attrs)
	}
	if m.remoteFailures != nil && result.Status == analysis.StatusPartialLocalOnly {
		m.remoteFailures.Add(ctx, 1)
	}
}
