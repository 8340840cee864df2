package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/riftword/autocomplete/internal/analytics"
	"github.com/riftword/autocomplete/internal/metrics"
	"github.com/riftword/autocomplete/internal/service"
	"github.com/riftword/autocomplete/pkg/errors"
	"github.com/riftword/autocomplete/pkg/models"
	"github.com/riftword/autocomplete/pkg/utils"
)

var startTime time.Time

func init() {
	startTime = time.Now()
}

// Handler handles HTTP requests for the autocomplete API
type Handler struct {
	service     *service.AutocompleteService
	logger      *logrus.Logger
	rateLimiter *rate.Limiter
	validator   *utils.QueryValidator
	metrics     *metrics.Metrics
	analytics   *analytics.Processor
}

// NewHandler creates a new API handler
func NewHandler(svc *service.AutocompleteService, proc *analytics.Processor, logger *logrus.Logger, metricsInstance *metrics.Metrics) *Handler {
	// Rate limiter: 100 requests per second with burst of 200
	limiter := rate.NewLimiter(rate.Limit(100), 200)

	return &Handler{
		service:     svc,
		logger:      logger,
		rateLimiter: limiter,
		validator:   utils.NewQueryValidator(),
		metrics:     metricsInstance,
		analytics:   proc,
	}
}

// AutocompleteHandler handles autocomplete requests
func (h *Handler) AutocompleteHandler(c *gin.Context) {
	if !h.rateLimiter.Allow() {
		apiErr := errors.NewRateLimitError()
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	query := c.Query("q")
	if query == "" {
		apiErr := errors.NewValidationError("Query parameter 'q' is required", "Missing required parameter")
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	if err := h.validator.ValidateQuery(query); err != nil {
		apiErr := errors.NewValidationError("Invalid query", err.Error())
		h.metrics.RecordError("api", "validation_failed")
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}
	query = h.validator.SanitizeQuery(query)

	limit := 10
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	userID := c.Query("user_id")
	sessionID := c.Query("session_id")

	if userID != "" {
		if err := utils.ValidateUserID(userID); err != nil {
			apiErr := errors.NewValidationError("Invalid user ID", err.Error())
			c.JSON(apiErr.HTTPStatus, apiErr)
			return
		}
	}
	if sessionID != "" {
		if err := utils.ValidateSessionID(sessionID); err != nil {
			apiErr := errors.NewValidationError("Invalid session ID", err.Error())
			c.JSON(apiErr.HTTPStatus, apiErr)
			return
		}
	}

	req := models.AutocompleteRequest{
		Query:     query,
		Limit:     limit,
		UserID:    userID,
		SessionID: sessionID,
	}

	response, err := h.service.GetSuggestions(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Error("failed to get suggestions")
		h.metrics.RecordError("api", "service_failed")
		apiErr := errors.NewInternalError("Failed to process request", err)
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	go h.logQuery(query, userID, sessionID, c.ClientIP())

	c.JSON(http.StatusOK, response)
}

// AutocompletePostHandler handles POST requests for autocomplete
func (h *Handler) AutocompletePostHandler(c *gin.Context) {
	if !h.rateLimiter.Allow() {
		apiErr := errors.NewRateLimitError()
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	var req models.AutocompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiErr := errors.NewValidationError("Invalid request body", err.Error())
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	if err := h.validator.ValidateQuery(req.Query); err != nil {
		apiErr := errors.NewValidationError("Invalid query", err.Error())
		h.metrics.RecordError("api", "validation_failed")
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}
	req.Query = h.validator.SanitizeQuery(req.Query)

	if req.UserID != "" {
		if err := utils.ValidateUserID(req.UserID); err != nil {
			apiErr := errors.NewValidationError("Invalid user ID", err.Error())
			c.JSON(apiErr.HTTPStatus, apiErr)
			return
		}
	}
	if req.SessionID != "" {
		if err := utils.ValidateSessionID(req.SessionID); err != nil {
			apiErr := errors.NewValidationError("Invalid session ID", err.Error())
			c.JSON(apiErr.HTTPStatus, apiErr)
			return
		}
	}

	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Limit > 50 {
		req.Limit = 50
	}

	response, err := h.service.GetSuggestions(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Error("failed to get suggestions")
		h.metrics.RecordError("api", "service_failed")
		apiErr := errors.NewInternalError("Failed to process request", err)
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	go h.logQuery(req.Query, req.UserID, req.SessionID, c.ClientIP())

	c.JSON(http.StatusOK, response)
}

// AddTermHandler allows adding a new term directly (admin endpoint)
func (h *Handler) AddTermHandler(c *gin.Context) {
	var body struct {
		Term string `json:"term" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiErr := errors.NewValidationError("Invalid request body", err.Error())
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	if err := utils.ValidateTerm(body.Term); err != nil {
		apiErr := errors.NewValidationError("Invalid term", err.Error())
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	if err := h.service.AddTerm(body.Term); err != nil {
		h.logger.WithError(err).Error("failed to add term")
		h.metrics.RecordError("api", "service_failed")
		apiErr := errors.NewInternalError("Failed to add term", err)
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "term added successfully",
		"term":    body.Term,
	})
}

// BatchAddTermsHandler allows adding multiple terms at once
func (h *Handler) BatchAddTermsHandler(c *gin.Context) {
	var body struct {
		Terms []string `json:"terms"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiErr := errors.NewValidationError("Invalid request body", err.Error())
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	if len(body.Terms) == 0 {
		apiErr := errors.NewValidationError("No terms provided", "Request body must contain at least one term")
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}
	if len(body.Terms) > 1000 {
		apiErr := errors.NewValidationError("Too many terms", "Maximum 1000 terms allowed per batch")
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	for i, term := range body.Terms {
		if err := utils.ValidateTerm(term); err != nil {
			apiErr := errors.NewValidationError("Invalid term in batch", fmt.Sprintf("term %d: %s", i+1, err.Error()))
			c.JSON(apiErr.HTTPStatus, apiErr)
			return
		}
	}

	h.service.BatchAddTerms(body.Terms)

	c.JSON(http.StatusCreated, gin.H{
		"message": "terms added successfully",
		"count":   len(body.Terms),
	})
}

// DeleteTermHandler removes a term
func (h *Handler) DeleteTermHandler(c *gin.Context) {
	term := c.Param("term")
	if term == "" {
		apiErr := errors.NewValidationError("Term parameter is required", "URL path must include term parameter")
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	if err := utils.ValidateTerm(term); err != nil {
		apiErr := errors.NewValidationError("Invalid term", err.Error())
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	h.service.DeleteTerm(term)

	c.JSON(http.StatusOK, gin.H{
		"message": "term deleted successfully",
		"term":    term,
	})
}

// SyncFullHandler forces a full snapshot of the in-memory index to the
// configured persistence adapter.
func (h *Handler) SyncFullHandler(c *gin.Context) {
	if err := h.service.SyncFull(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("failed to run full sync")
		apiErr := errors.NewInternalError("Failed to sync index", err)
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "full sync completed"})
}

// RecentSearchesHandler returns the cache's bounded recent-query history.
func (h *Handler) RecentSearchesHandler(c *gin.Context) {
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	searches, err := h.service.RecentSearches(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch recent searches")
		apiErr := errors.NewInternalError("Failed to fetch recent searches", err)
		c.JSON(apiErr.HTTPStatus, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recent_searches": searches})
}

// StatsHandler returns service statistics
func (h *Handler) StatsHandler(c *gin.Context) {
	serviceStats := gin.H{
		"ActiveRequests":    h.metrics.ActiveRequests,
		"RequestsTotal":     h.metrics.RequestsTotal,
		"RequestDuration":   h.metrics.RequestDuration,
		"CacheHitsTotal":    h.metrics.CacheHitsTotal,
		"CacheMissesTotal":  h.metrics.CacheMissesTotal,
		"CacheOperations":   h.metrics.CacheOperations,
		"TrieSearches":      h.metrics.TrieSearches,
		"TrieInserts":       h.metrics.TrieInserts,
		"TrieDeletes":       h.metrics.TrieDeletes,
		"TrieSize":          h.metrics.TrieSize,
		"FuzzySearches":     h.metrics.FuzzySearches,
		"FuzzyMatches":      h.metrics.FuzzyMatches,
		"PipelineProcessed": h.metrics.PipelineProcessed,
		"PipelineQueueSize": h.metrics.PipelineQueueSize,
		"PipelineLatency":   h.metrics.PipelineLatency,
		"RebuildsTotal":     h.metrics.RebuildsTotal,
		"RebuildDuration":   h.metrics.RebuildDuration,
		"ErrorsTotal":       h.metrics.ErrorsTotal,
	}

	indexStats := h.service.GetIndexStats()

	stats := gin.H{
		"service": serviceStats,
		"index":   indexStats,
		"uptime":  time.Since(startTime).String(),
	}
	if h.analytics != nil {
		stats["analytics"] = h.analytics.Stats()
	}

	c.JSON(http.StatusOK, stats)
}

// HealthHandler provides health check endpoint
func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// CORSMiddleware handles CORS headers
func (h *Handler) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// LoggingMiddleware logs HTTP requests
func (h *Handler) LoggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		h.logger.WithFields(logrus.Fields{
			"status":     param.StatusCode,
			"method":     param.Method,
			"path":       param.Path,
			"ip":         param.ClientIP,
			"latency":    param.Latency,
			"user_agent": param.Request.UserAgent(),
		}).Info("http request")

		return ""
	})
}

// AuthMiddleware provides simple API key authentication for admin endpoints
func (h *Handler) AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		providedKey := c.GetHeader("X-API-Key")
		if providedKey != apiKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or missing API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// MetricsMiddleware records request metrics
func (h *Handler) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		h.metrics.IncActiveRequests()

		c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())

		h.metrics.RecordRequest(c.Request.Method, c.FullPath(), status, duration)
		h.metrics.DecActiveRequests()
	}
}

// logQuery logs search queries for analytics
func (h *Handler) logQuery(query, userID, sessionID, ipAddress string) {
	searchLog := models.SearchLog{
		Query:     query,
		UserID:    userID,
		SessionID: sessionID,
		Timestamp: time.Now(),
		IPAddress: ipAddress,
	}

	h.logger.WithFields(logrus.Fields{
		"query":      searchLog.Query,
		"user_id":    searchLog.UserID,
		"session_id": searchLog.SessionID,
		"ip":         searchLog.IPAddress,
	}).Info("search query logged")

	if h.analytics != nil {
		if err := h.analytics.LogQuery(searchLog); err != nil {
			h.logger.WithError(err).Warn("failed to send log to analytics processor")
		}
	}
}
