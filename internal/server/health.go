package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"runtoyou.app/runtoyou/pkg/logger"
)

const (
	statusUp       = "up"
	statusDown     = "down"
	statusDisabled = "disabled"
)

// healthHandler reports database and redis reachability. A nil redis client
// is reported as disabled.
func healthHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": statusUp, "redis": statusDisabled}
		code := http.StatusOK

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			logger.L().Warn("health check: database unreachable", zap.Error(err))
			checks["database"] = statusDown
			code = http.StatusServiceUnavailable
		}

		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				logger.L().Warn("health check: redis unreachable", zap.Error(err))
				checks["redis"] = statusDown
				code = http.StatusServiceUnavailable
			} else {
				checks["redis"] = statusUp
			}
		}

		status := "ok"
		if code != http.StatusOK {
			status = "degraded"
		}
		c.JSON(code, gin.H{"status": status, "checks": checks})
	}
}
