package usecase

import "context"

// MetricsSummary represents aggregated health check insights.
type MetricsSummary struct {
	TotalChecks         int64   `json:"total_checks"`
	ClassifierSuccesses int64   `json:"classifier_successes"`
	FallbackCount       int64   `json:"fallback_count"`
	FailedCount         int64   `json:"failed_count"`
	SuccessRate         float64 `json:"success_rate"`
	AverageLatencyMs    float64 `json:"average_latency_ms"`
}

// GetMetricsSummary aggregates health check metrics from persisted records.
func (uc *HealthCheckUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalChecks:         aggregation.TotalCount,
		ClassifierSuccesses: aggregation.ClassifierCount,
		FallbackCount:       aggregation.FallbackCount,
		FailedCount:         aggregation.FailedCount,
		AverageLatencyMs:    aggregation.AverageLatency,
	}

	if aggregation.TotalCount > 0 {
		summary.SuccessRate = float64(aggregation.ClassifierCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
