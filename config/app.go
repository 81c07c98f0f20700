package config

import (
	"os"
	"strconv"
	"strings"
)

// AppConfig holds settings read from the environment at startup.
type AppConfig struct {
	Port                     string
	GinMode                  string
	Environment              string
	UploadPath               string
	JWTSecret                string
	CORSAllowedOrigins       []string
	MaxUploadBytes           int64
	IncludeDestinationReview bool
	AutoMigrate              bool
	NotifyOnTransition       bool
	LogsToken                string
}

// App is the configuration loaded by LoadAppConfig.
var App = defaultAppConfig()

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:                     "8080",
		GinMode:                  "debug",
		Environment:              "development",
		UploadPath:               "./uploads",
		CORSAllowedOrigins:       []string{"http://localhost:3000"},
		MaxUploadBytes:           10 * 1024 * 1024,
		IncludeDestinationReview: true,
	}
}

// LoadAppConfig reads the environment into App and returns it. Values that
// fail to parse keep their defaults.
func LoadAppConfig() AppConfig {
	cfg := defaultAppConfig()

	if v := strings.TrimSpace(os.Getenv("SERVER_PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("GIN_MODE")); v != "" {
		cfg.GinMode = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("ENVIRONMENT"))); v != "" {
		cfg.Environment = v
	}
	if v := strings.TrimSpace(os.Getenv("UPLOAD_PATH")); v != "" {
		cfg.UploadPath = v
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.LogsToken = strings.TrimSpace(os.Getenv("LOGS_TOKEN"))

	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		origins := make([]string, 0)
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) > 0 {
			cfg.CORSAllowedOrigins = origins
		}
	}

	if mb, err := strconv.Atoi(strings.TrimSpace(os.Getenv("MAX_UPLOAD_MB"))); err == nil && mb > 0 {
		cfg.MaxUploadBytes = int64(mb) * 1024 * 1024
	}

	cfg.IncludeDestinationReview = envBool("INCLUDE_DESTINATION_REVIEW", cfg.IncludeDestinationReview)
	cfg.AutoMigrate = envBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.NotifyOnTransition = envBool("NOTIFY_ON_TRANSITION", cfg.NotifyOnTransition)

	App = cfg
	return cfg
}

// IsProduction reports whether the service runs with ENVIRONMENT=production.
func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
