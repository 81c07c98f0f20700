package middleware

import (
	"time"

	"transfer-appeal-api/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the configured frontend origins.
func CORSMiddleware() gin.HandlerFunc {
	conf := cors.DefaultConfig()
	conf.AllowOrigins = config.App.CORSAllowedOrigins
	conf.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	conf.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	conf.ExposeHeaders = []string{"Content-Disposition", RequestIDHeader}
	conf.AllowCredentials = true
	conf.MaxAge = 12 * time.Hour
	return cors.New(conf)
}

// SecurityHeaders sets the response headers every API reply carries.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}
