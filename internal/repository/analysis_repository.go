package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// AnalysisLog represents a persisted image analysis.
type AnalysisLog struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID string    `gorm:"column:request_id;uniqueIndex;size:64"`
	Filename  string    `gorm:"column:filename;size:255"`
	Format    string    `gorm:"column:format;size:16"`
	Mode      string    `gorm:"column:mode;size:16"`
	Width     int       `gorm:"column:width"`
	Height    int       `gorm:"column:height"`
	HasEXIF   bool      `gorm:"column:has_exif"`
	HasGPS    bool      `gorm:"column:has_gps"`
	Latitude  float64   `gorm:"column:latitude"`
	Longitude float64   `gorm:"column:longitude"`
	Summary   string    `gorm:"column:summary;type:text"`
	Metadata  string    `gorm:"column:metadata;type:text"`
	SHA1Hash  string    `gorm:"column:sha1_hash;index;size:40"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (AnalysisLog) TableName() string {
	return "analysis_logs"
}

// MetricsAggregation holds the raw aggregates computed over analysis logs.
type MetricsAggregation struct {
	TotalCount    int64   `gorm:"column:total_count"`
	EXIFCount     int64   `gorm:"column:exif_count"`
	GPSCount      int64   `gorm:"column:gps_count"`
	AveragePixels float64 `gorm:"column:average_pixels"`
}

// AnalysisRepository provides persistence APIs for analysis logs.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new repository instance.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// AutoMigrate ensures the schema is available.
func (r *AnalysisRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&AnalysisLog{})
}

// SaveLog persists an analysis log entry.
func (r *AnalysisRepository) SaveLog(ctx context.Context, log *AnalysisLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByRequestID retrieves the analysis log for a request.
func (r *AnalysisRepository) FindByRequestID(ctx context.Context, requestID string) (*AnalysisLog, error) {
	var log AnalysisLog
	if err := r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// FindDuplicatesByHash retrieves other analyses of the same image bytes.
func (r *AnalysisRepository) FindDuplicatesByHash(ctx context.Context, hash, excludeRequestID string) ([]*AnalysisLog, error) {
	var logs []*AnalysisLog
	err := r.db.WithContext(ctx).
		Where("sha1_hash = ? AND request_id <> ?", hash, excludeRequestID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// AggregateMetrics computes analysis totals and rates over all logs.
func (r *AnalysisRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.db.WithContext(ctx).
		Model(&AnalysisLog{}).
		Select(`COUNT(*) AS total_count,
			COALESCE(SUM(CASE WHEN has_exif THEN 1 ELSE 0 END), 0) AS exif_count,
			COALESCE(SUM(CASE WHEN has_gps THEN 1 ELSE 0 END), 0) AS gps_count,
			COALESCE(AVG(width * height), 0) AS average_pixels`).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
