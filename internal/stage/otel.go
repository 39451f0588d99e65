package stage

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/dohaibbur/CYBER-HERO/internal/stage"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
