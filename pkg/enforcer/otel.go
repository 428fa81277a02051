package enforcer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/picogrid/dart-simulations/pkg/enforcer"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
