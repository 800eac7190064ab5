package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerPrefix = "github.com/noah-isme/counsel-vault/internal/"

// Tracer returns the tracer for a vault component.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(tracerPrefix + component)
}

// ObserveSnapshot records the outcome and latency of a snapshot operation.
func ObserveSnapshot(operation string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SnapshotOperations().WithLabelValues(operation, outcome).Inc()
	SnapshotDuration().WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func prometheusGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}
