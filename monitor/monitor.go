package monitor

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"time"

	"transfer-appeal-api/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// DBPinger pings the connection pool behind db.
func DBPinger(db *gorm.DB) Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

var startedAt = time.Now()

// Register mounts /api/v1/health and /metrics. The /logs route is only
// mounted when logsToken is set.
func Register(router *gin.Engine, ping Pinger, logsToken string) {
	router.GET("/api/v1/health", healthHandler(ping))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if logsToken != "" {
		router.GET("/logs", logsHandler(logsToken, config.LogFilePath()))
	}
}

func healthHandler(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":         "ok",
			"message":        "Transfer Appeal API is running",
			"uptime_seconds": int64(time.Since(startedAt).Seconds()),
			"database":       "ok",
		}
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				config.Logger.Warn("health check: database unreachable", zap.Error(err))
				body["status"] = "degraded"
				body["database"] = "unreachable"
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

func logsHandler(token, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		logData, err := os.ReadFile(path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
	}
}
