package main

import (
	"time"

	"collections-review-backend/internal/config"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	_ = godotenv.Load()

	log := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	// Partition tables are created lazily; only the shared tables are
	// migrated up front.
	if err := db.AutoMigrate(
		&models.PartitionMeta{},
		&models.OverrideRule{},
		&models.AuditEntry{},
		&models.DeletedRecord{},
		&models.Vendor{},
	); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	rdb, locker, err := config.InitRedis(cfg)
	if err != nil {
		log.WithError(err).Fatal("redis unavailable")
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Actor-Id", "X-Actor-Role", "X-Actor-Branches"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		DB:     db,
		Redis:  rdb,
		Locker: locker,
		Cfg:    cfg,
		Log:    log,
	})

	log.WithField("port", cfg.Port).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
