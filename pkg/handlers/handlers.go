package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/apperrors"
	"github.com/arnavshah/staff-scheduler-go/pkg/auth"
	"github.com/arnavshah/staff-scheduler-go/pkg/availability"
	"github.com/arnavshah/staff-scheduler-go/pkg/config"
	"github.com/arnavshah/staff-scheduler-go/pkg/conflict"
	"github.com/arnavshah/staff-scheduler-go/pkg/database"
	"github.com/arnavshah/staff-scheduler-go/pkg/demandfeed"
	"github.com/arnavshah/staff-scheduler-go/pkg/forecast"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/arnavshah/staff-scheduler-go/pkg/roster"
	"github.com/arnavshah/staff-scheduler-go/pkg/scheduler"
	"github.com/arnavshah/staff-scheduler-go/pkg/scoring"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRateLimit is the daily request allowance of a new API key.
const DefaultRateLimit = 10000

// Handler contains dependencies for the route handlers
type Handler struct {
	DB           *gorm.DB
	Auth         *auth.Authenticator
	Availability *availability.Store
	Detector     *conflict.Detector
	Roster       *roster.Repository
	Forecasts    *forecast.Service
	Optimizer    *scheduler.Optimizer
	Demand       *demandfeed.SQLSource
	Policy       scheduler.StaffingPolicy
	Logger       *zap.Logger
}

// New wires a Handler from configuration. source feeds forecasts; nil uses the
// demand table. cache may be nil.
func New(db *gorm.DB, cfg config.Config, source forecast.HistoricalSource, cache forecast.Cache, logger *zap.Logger) *Handler {
	logger = logging.OrNop(logger)
	demand := demandfeed.NewSQLSource(db)
	if source == nil {
		source = demand
	}

	optCfg := scheduler.DefaultConfig()
	optCfg.Weights = scheduler.Weights{
		Coverage:     cfg.Weights.Coverage,
		Cost:         cfg.Weights.Cost,
		Satisfaction: cfg.Weights.Satisfaction,
		Compliance:   cfg.Weights.Compliance,
	}
	optCfg.SwapLimit = cfg.OptimizerSwapLimit
	optCfg.Deadline = cfg.OptimizerDeadline

	return &Handler{
		DB:           db,
		Auth:         auth.New(cfg.JWTSecret, cfg.APIMasterSecret),
		Availability: availability.NewStore(db, logger),
		Detector:     conflict.NewDetector(db),
		Roster:       roster.New(db, logger),
		Forecasts:    forecast.NewService(forecast.New(forecast.DefaultConfig()), source, cache, logger),
		Optimizer:    scheduler.NewOptimizer(scoring.New(scoring.DefaultConfig()), optCfg, logger),
		Demand:       demand,
		Policy:       scheduler.DefaultPolicy(),
		Logger:       logger,
	}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.RequestLogger())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Staff Scheduler API",
			"version": "3.0.0",
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.GET("/usage", h.GetMyUsage)

		api.GET("/employees", h.ListEmployees)
		api.POST("/employees", h.CreateEmployee)
		api.GET("/employees/:id", h.GetEmployee)
		api.PUT("/employees/:id", h.UpdateEmployee)
		api.DELETE("/employees/:id", h.DeleteEmployee)
		api.POST("/employees/:id/deactivate", h.DeactivateEmployee)

		api.GET("/employees/:id/availability", h.GetAvailability)
		api.PUT("/employees/:id/availability", h.UpsertAvailability)
		api.POST("/employees/:id/availability", h.CreateAvailability)
		api.POST("/employees/:id/availability/bulk", h.BulkUpsertAvailability)
		api.PUT("/employees/:id/availability/pattern", h.SavePattern)
		api.GET("/employees/:id/availability/preview", h.PreviewPattern)
		api.GET("/employees/:id/availability/effective", h.EffectiveAvailability)
		api.GET("/employees/:id/availability/resolve", h.ResolveShiftAvailability)
		api.GET("/employees/:id/availability/conflicts", h.FindConflicts)
		api.PUT("/availability/:id", h.UpdateAvailability)
		api.DELETE("/availability/:id", h.DeleteAvailability)

		api.GET("/shifts", h.ListShifts)
		api.PATCH("/shifts/:id/status", h.UpdateShiftStatus)

		api.POST("/demand", h.RecordDemand)
		api.POST("/forecast", h.Forecast)

		api.POST("/schedule/optimize", h.Optimize)
		api.POST("/schedule/evaluate", h.Evaluate)
		api.POST("/schedule/validate", h.ValidateInput)
		api.GET("/schedule/export", h.Export)
	}

	return r
}

// RequestLogger attaches a request scoped logger to the request context.
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := h.Logger.With(
			zap.String("request_id", uuid.NewString()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
		logger.Info("request completed",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key, scopes the request to the key's
// restaurant and enforces the daily rate limit.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c.GetHeader("Authorization"))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		identity, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		err = h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:          key,
			KeyPreview:   auth.KeyPreview(key),
			Name:         identity.Name,
			RestaurantID: identity.RestaurantID,
			RateLimit:    DefaultRateLimit,
		}).Error
		if err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}

		if apiKey.RevokedAt != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key revoked"})
			return
		}

		var used database.APIUsage
		h.DB.Where("key_id = ? AND date = ?", apiKey.ID, today()).Limit(1).Find(&used)
		if apiKey.RateLimit > 0 && used.RequestCount >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily rate limit exceeded"})
			return
		}

		now := time.Now()
		h.DB.Model(&apiKey).Update("last_used", &now)

		c.Set("apiKey", &apiKey)
		c.Set("restaurantID", identity.RestaurantID)
		c.Next()

		h.RecordUsage(c, 0, 0)
	}
}

// RecordUsage adds to today's usage counters in one upsert. The middleware
// records every request; handlers add the shifts and employees they processed.
func (h *Handler) RecordUsage(c *gin.Context, shiftCount, employeeCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	requests := 1
	if shiftCount > 0 || employeeCount > 0 {
		requests = 0
	}

	// Use OnConflict for a single-query upsert (supported by Postgres, MySQL and SQLite)
	err := h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", requests),
			"total_shifts":    gorm.Expr("total_shifts + ?", shiftCount),
			"total_employees": gorm.Expr("total_employees + ?", employeeCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:          apiKey.ID,
		Date:           today(),
		RequestCount:   requests,
		TotalShifts:    shiftCount,
		TotalEmployees: employeeCount,
	}).Error
	if err != nil {
		logging.FromContext(c.Request.Context(), h.Logger).Warn("failed to record usage", zap.Error(err))
	}
}

// respondError maps service errors onto HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	var vErr *apperrors.ValidationError
	var cErr *apperrors.ConflictError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "field_errors": vErr.FieldErrors})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &cErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "existing_ids": cErr.Existing})
	default:
		logging.FromContext(c.Request.Context(), h.Logger).Error("request failed",
			zap.String("kind", apperrors.Kind(err)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func restaurantID(c *gin.Context) uint {
	return c.GetUint("restaurantID")
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func bearer(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func today() string {
	return time.Now().Format("2006-01-02")
}
