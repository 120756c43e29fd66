package watchtx

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/playhouse-bot/go-storage/watchtx"

type metrics struct {
	attempts  metric.Int64Counter
	conflicts metric.Int64Counter
	notFound  metric.Int64Counter
}

func newMetrics(provider metric.MeterProvider) (metrics, error) {
	meter := provider.Meter(meterName)

	attempts, err := meter.Int64Counter("watchtx.attempts",
		metric.WithDescription("Attempts started by watched transactions."))
	if err != nil {
		return metrics{}, fmt.Errorf("failed to create attempts counter: %w", err)
	}

	conflicts, err := meter.Int64Counter("watchtx.conflicts",
		metric.WithDescription("Attempts discarded because the watched key changed."))
	if err != nil {
		return metrics{}, fmt.Errorf("failed to create conflicts counter: %w", err)
	}

	notFound, err := meter.Int64Counter("watchtx.key_not_found",
		metric.WithDescription("Calls rejected because the watched key was absent."))
	if err != nil {
		return metrics{}, fmt.Errorf("failed to create key_not_found counter: %w", err)
	}

	return metrics{attempts: attempts, conflicts: conflicts, notFound: notFound}, nil
}
