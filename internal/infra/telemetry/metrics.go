// Package telemetry records store and HTTP metrics in Prometheus and wraps
// store operations in OpenTelemetry spans.
package telemetry

import (
	"context"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/mlte-team/mlte-sub000/store"

type Metrics struct {
	StoreOpsTotal      *prometheus.CounterVec
	StoreOpDuration    *prometheus.HistogramVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	TokensIssued       *prometheus.CounterVec
	ManualValidations  *prometheus.CounterVec
}

// NewMetrics registers every collector with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StoreOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mlte_store_operations_total",
			Help: "Store operations by family, operation and outcome.",
		}, []string{"family", "op", "outcome"}),
		StoreOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mlte_store_operation_duration_seconds",
			Help:    "Store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"family", "op"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mlte_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mlte_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mlte_tokens_total",
			Help: "Password grant attempts by outcome.",
		}, []string{"outcome"}),
		ManualValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mlte_manual_validations_total",
			Help: "Info results converted by hand, by resulting kind.",
		}, []string{"kind"}),
	}
}

// Observer implements store.Observer.
type Observer struct {
	metrics *Metrics
	now     func() time.Time
}

var _ store.Observer = (*Observer)(nil)

func NewObserver(m *Metrics) *Observer {
	return &Observer{metrics: m, now: time.Now}
}

func (o *Observer) Observe(ctx context.Context, family, op string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, family+"."+op)
	span.SetAttributes(attribute.String("mlte.family", family), attribute.String("mlte.op", op))
	start := o.now()
	return ctx, func(err error) {
		defer span.End()
		if o.metrics != nil {
			o.metrics.StoreOpsTotal.WithLabelValues(family, op, Outcome(err)).Inc()
			o.metrics.StoreOpDuration.WithLabelValues(family, op).Observe(o.now().Sub(start).Seconds())
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// Outcome is the metric label for an operation result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		return "not_found"
	case domain.ErrAlreadyExists:
		return "already_exists"
	case domain.ErrForbidden:
		return "forbidden"
	case domain.ErrBadRequest:
		return "bad_request"
	case domain.ErrReferential:
		return "referential"
	}
	return "error"
}
