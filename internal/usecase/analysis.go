package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/geoint-analyzer/internal/analyzer"
	"github.com/example/geoint-analyzer/internal/logging"
	"github.com/example/geoint-analyzer/internal/repository"
)

// AnalysisRepository defines the persistence operations needed by the use case.
type AnalysisRepository interface {
	SaveLog(ctx context.Context, log *repository.AnalysisLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.AnalysisLog, error)
	FindDuplicatesByHash(ctx context.Context, hash, excludeRequestID string) ([]*repository.AnalysisLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// Engine runs the actual image analysis.
type Engine interface {
	Analyze(name string, data []byte) (*analyzer.Analysis, error)
}

// EngineFunc adapts a plain analysis function to the Engine interface.
type EngineFunc func(name string, data []byte) (*analyzer.Analysis, error)

// Analyze implements Engine.
func (f EngineFunc) Analyze(name string, data []byte) (*analyzer.Analysis, error) {
	return f(name, data)
}

// AnalysisUseCase encapsulates business logic for the analysis flow.
type AnalysisUseCase struct {
	repo           AnalysisRepository
	cache          Cache
	engine         Engine
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type cachedAnalysis struct {
	RequestID string    `json:"request_id"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	Mode      string    `json:"mode"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	HasEXIF   bool      `json:"has_exif"`
	HasGPS    bool      `json:"has_gps"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Summary   string    `json:"summary"`
	Metadata  string    `json:"metadata"`
	Hash      string    `json:"sha1_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateReport lists earlier analyses of the same image bytes.
type DuplicateReport struct {
	Request    *repository.AnalysisLog
	Duplicates []*repository.AnalysisLog
}

// NewAnalysisUseCase constructs a new use case instance.
func NewAnalysisUseCase(repo AnalysisRepository, cache Cache, engine Engine, logger *zap.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{
		repo:           repo,
		cache:          cache,
		engine:         engine,
		logger:         logger.Named("analysis_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AnalyzeImage orchestrates analysis, persistence, and caching for one upload.
func (uc *AnalysisUseCase) AnalyzeImage(ctx context.Context, filename string, imageBytes []byte) (string, *analyzer.Analysis, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze_image", requestID)

	cacheKey := fmt.Sprintf("analysis:%s", requestID)
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.processing", func() error {
		return uc.cache.Set(ctx, cacheKey, "processing", time.Minute)
	}); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return "", nil, err
	}

	analysis, err := uc.engine.Analyze(filename, imageBytes)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.run_analysis", requestID, err)
		var vErr *analyzer.ValidationError
		if errors.As(err, &vErr) {
			opLogger.Warn("image rejected", zap.String("reason", vErr.Reason))
		} else {
			opLogger.Error("analysis failed", zap.Error(wrapped))
		}
		return "", nil, wrapped
	}

	hash := sha1.Sum(imageBytes)
	log, err := buildLog(requestID, hex.EncodeToString(hash[:]), analysis)
	if err != nil {
		opLogger.Error("failed to serialize metadata", zap.Error(err))
		return "", nil, err
	}
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist analysis log", zap.Error(wrapped))
		return "", nil, wrapped
	}

	serialized, err := json.Marshal(cachedFromLog(log))
	if err != nil {
		opLogger.Error("failed to serialize analysis result", zap.Error(err))
		return "", nil, err
	}

	if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), 5*time.Minute)
	}); err != nil {
		opLogger.Error("failed to cache analysis result", zap.Error(err))
		return "", nil, err
	}

	return requestID, analysis, nil
}

// GetResult retrieves a cached analysis outcome or loads from persistence.
func (uc *AnalysisUseCase) GetResult(ctx context.Context, requestID string) (*repository.AnalysisLog, error) {
	cacheKey := fmt.Sprintf("analysis:%s", requestID)
	if cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey); err == nil {
		var payload cachedAnalysis
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
		} else if payload.RequestID != "" {
			return logFromCached(&payload), nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to read cache", zap.Error(err))
	}

	log, err := uc.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return log, nil
}

// GetDuplicateReport lists other uploads carrying the same image bytes.
func (uc *AnalysisUseCase) GetDuplicateReport(ctx context.Context, requestID string) (*DuplicateReport, error) {
	log, err := uc.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	duplicates, err := uc.repo.FindDuplicatesByHash(ctx, log.SHA1Hash, log.RequestID)
	if err != nil {
		return nil, err
	}

	return &DuplicateReport{
		Request:    log,
		Duplicates: duplicates,
	}, nil
}

func buildLog(requestID, hash string, analysis *analyzer.Analysis) (*repository.AnalysisLog, error) {
	serializedMeta, err := json.Marshal(analysis.Metadata)
	if err != nil {
		return nil, err
	}

	log := &repository.AnalysisLog{
		RequestID: requestID,
		Filename:  analysis.File,
		Format:    analysis.Metadata.Format,
		Mode:      analysis.Metadata.Mode,
		Width:     analysis.Metadata.Size.Width,
		Height:    analysis.Metadata.Size.Height,
		HasEXIF:   analysis.Metadata.HasEXIF(),
		Summary:   analysis.Summary,
		Metadata:  string(serializedMeta),
		SHA1Hash:  hash,
		CreatedAt: time.Now().UTC(),
	}
	if coords, ok := analysis.Metadata.GPS(); ok {
		log.HasGPS = true
		log.Latitude = coords.Latitude
		log.Longitude = coords.Longitude
	}
	return log, nil
}

func cachedFromLog(log *repository.AnalysisLog) cachedAnalysis {
	return cachedAnalysis{
		RequestID: log.RequestID,
		Filename:  log.Filename,
		Format:    log.Format,
		Mode:      log.Mode,
		Width:     log.Width,
		Height:    log.Height,
		HasEXIF:   log.HasEXIF,
		HasGPS:    log.HasGPS,
		Latitude:  log.Latitude,
		Longitude: log.Longitude,
		Summary:   log.Summary,
		Metadata:  log.Metadata,
		Hash:      log.SHA1Hash,
		CreatedAt: log.CreatedAt,
	}
}

func logFromCached(payload *cachedAnalysis) *repository.AnalysisLog {
	return &repository.AnalysisLog{
		RequestID: payload.RequestID,
		Filename:  payload.Filename,
		Format:    payload.Format,
		Mode:      payload.Mode,
		Width:     payload.Width,
		Height:    payload.Height,
		HasEXIF:   payload.HasEXIF,
		HasGPS:    payload.HasGPS,
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Summary:   payload.Summary,
		Metadata:  payload.Metadata,
		SHA1Hash:  payload.Hash,
		CreatedAt: payload.CreatedAt,
	}
}

func (uc *AnalysisUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, requestID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *AnalysisUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
