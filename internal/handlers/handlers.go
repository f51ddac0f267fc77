package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/example/geoint-analyzer/internal/analyzer"
	"github.com/example/geoint-analyzer/internal/usecase"
)

// MaxUploadSize caps the accepted image payload.
const MaxUploadSize = 10 << 20

// RegisterRoutes wires the HTTP handlers to the Gin router. The auth
// middleware guards the analysis API; pass auth.Disabled() to run open.
func RegisterRoutes(router *gin.Engine, uc *usecase.AnalysisUseCase, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/", authMiddleware)

	api.POST("/analyze", func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil || file.Filename == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided."})
			return
		}

		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds the upload size limit."})
			return
		}

		filename := filepath.Base(file.Filename)
		if err := analyzer.ValidateExtension(filename); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to open the uploaded image."})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read the uploaded image."})
			return
		}

		requestID, analysis, err := uc.AnalyzeImage(c.Request.Context(), filename, data)
		if err != nil {
			var vErr *analyzer.ValidationError
			if errors.As(err, &vErr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "The analysis failed."})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": requestID,
			"file":       analysis.File,
			"metadata":   analysis.Metadata,
			"summary":    analysis.Summary,
		})
	})

	api.GET("/results/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		log, err := uc.GetResult(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": log.RequestID,
			"file":       log.Filename,
			"format":     log.Format,
			"width":      log.Width,
			"height":     log.Height,
			"has_exif":   log.HasEXIF,
			"has_gps":    log.HasGPS,
			"latitude":   log.Latitude,
			"longitude":  log.Longitude,
			"summary":    log.Summary,
			"created_at": log.CreatedAt,
		})
	})

	api.GET("/results/:id/duplicates", func(c *gin.Context) {
		report, err := uc.GetDuplicateReport(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		duplicates := make([]gin.H, 0, len(report.Duplicates))
		for _, dup := range report.Duplicates {
			duplicates = append(duplicates, gin.H{
				"request_id": dup.RequestID,
				"file":       dup.Filename,
				"created_at": dup.CreatedAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id": report.Request.RequestID,
			"sha1_hash":  report.Request.SHA1Hash,
			"duplicates": duplicates,
		})
	})

	api.GET("/metrics", func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate metrics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}
