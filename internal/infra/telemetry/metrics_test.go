package telemetry

import (
	"context"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserverCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	obs := NewObserver(metrics)

	_, done := obs.Observe(context.Background(), "artifact", "write")
	done(nil)
	_, done = obs.Observe(context.Background(), "artifact", "write")
	done(domain.NotFound("missing"))

	if got := testutil.ToFloat64(metrics.StoreOpsTotal.WithLabelValues("artifact", "write", "ok")); got != 1 {
		t.Fatalf("expected 1 ok op, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.StoreOpsTotal.WithLabelValues("artifact", "write", "not_found")); got != 1 {
		t.Fatalf("expected 1 not_found op, got %v", got)
	}
}

func TestOutcomeLabels(t *testing.T) {
	if Outcome(nil) != "ok" {
		t.Fatalf("expected ok")
	}
	if Outcome(domain.Referential("dangling")) != "referential" {
		t.Fatalf("expected referential")
	}
	if Outcome(domain.Internal("boom")) != "error" {
		t.Fatalf("expected error")
	}
}

func TestInitTracerWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "", "mlte", "test")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	shutdown(context.Background())
}
