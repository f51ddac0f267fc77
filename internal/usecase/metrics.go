package usecase

import "context"

// MetricsSummary represents aggregated analysis insights.
type MetricsSummary struct {
	TotalAnalyses int64   `json:"total_analyses"`
	WithEXIF      int64   `json:"with_exif"`
	WithGPS       int64   `json:"with_gps"`
	EXIFRate      float64 `json:"exif_rate"`
	GPSRate       float64 `json:"gps_rate"`
	AveragePixels float64 `json:"average_pixels"`
}

// GetMetricsSummary aggregates analysis metrics from persisted logs.
func (uc *AnalysisUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalAnalyses: aggregation.TotalCount,
		WithEXIF:      aggregation.EXIFCount,
		WithGPS:       aggregation.GPSCount,
		AveragePixels: aggregation.AveragePixels,
	}

	if aggregation.TotalCount > 0 {
		summary.EXIFRate = float64(aggregation.EXIFCount) / float64(aggregation.TotalCount)
		summary.GPSRate = float64(aggregation.GPSCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
