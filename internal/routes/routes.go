package routes

import (
	"net/http"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collections-review-backend/internal/config"
	handler "collections-review-backend/internal/handlers"
	"collections-review-backend/internal/repository"
	"collections-review-backend/internal/roster"
	"collections-review-backend/internal/services/assignment"
	"collections-review-backend/internal/services/ingestion"
	overridesvc "collections-review-backend/internal/services/overrides"
	"collections-review-backend/internal/services/query"
	"collections-review-backend/internal/services/review"
)

type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Locker *redislock.Client
	Cfg    *config.Config
	Log    *logrus.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	store := repository.NewGormStore(d.DB, d.Log)
	overrideRepo := repository.NewGormOverrides(d.DB)
	auditRepo := repository.NewGormAudit(d.DB)
	deletionRepo := repository.NewGormDeletionLog(d.DB)
	vendorRepo := repository.NewGormVendors(d.DB)

	// Without Redis the cursor cache and the assignment lock fall back
	// to single-process implementations.
	var cache interface {
		repository.CursorStore
		repository.UpdateSignal
	}
	var locker repository.Locker
	if d.Redis != nil {
		cache = repository.NewRedisCache(d.Redis, d.Cfg.CursorTTL)
		locker = repository.NewRedisLocker(d.Locker, d.Cfg.LockTTL, d.Cfg.LockWait, d.Log)
	} else {
		d.Log.Warn("redis not configured, using in-process cursors and lock")
		cache = repository.NewMemoryCache(d.Cfg.CursorTTL)
		locker = repository.NewMemoryLocker(d.Cfg.LockWait)
	}

	rosterSrc := roster.NewFileSource(d.Cfg.RosterPath)

	ingestSvc := ingestion.NewService(store, vendorRepo, deletionRepo, cache, d.Cfg.Strategy, d.Log)
	engine := assignment.NewEngine(store, overrideRepo, vendorRepo, cache, rosterSrc, locker, d.Log)
	reviewSvc := review.NewService(store, auditRepo, cache, d.Log)
	querySvc := query.NewService(store, engine, d.Log)
	overrideSvc := overridesvc.NewService(overrideRepo, rosterSrc, d.Log)

	recordsHandler := handler.NewRecordsHandler(ingestSvc, reviewSvc, querySvc, engine)
	overridesHandler := handler.NewOverridesHandler(overrideSvc)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := api.Group("")
	authed.Use(handler.ActorFromHeaders())

	records := authed.Group("/records")
	records.POST("", recordsHandler.Submit)
	records.GET("", recordsHandler.List)
	records.PUT("/:locator/status", recordsHandler.UpdateStatus)
	records.DELETE("/:locator", recordsHandler.Delete)
	records.GET("/:locator/audit", recordsHandler.AuditTrail)

	authed.GET("/last-update", recordsHandler.LastUpdate)
	authed.POST("/assignments/run", recordsHandler.RunAssignments)

	ov := authed.Group("/overrides")
	{
		ov.GET("", overridesHandler.List)
		ov.POST("", overridesHandler.Add)
		ov.DELETE("/:vendor", overridesHandler.Remove)
	}
}
