package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the report service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseDriver    string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	GroupSessionTTL   time.Duration
	DefaultLanguage   string
	PictureBaseURL    string
	DefaultPictureURL string
	RateLimitMax      int
	RateLimitWindow   time.Duration
	// MetricsAdminOnly puts /metrics behind a JWT carrying the admin role.
	MetricsAdminOnly bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RRC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Raw Records Count")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("session.group_ttl", "24h")
	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("report.picture_base_url", "/user/pix")
	v.SetDefault("report.default_picture_url", "/pix/u/f2.png")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("metrics.admin_only", false)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	ttlString := v.GetString("session.group_ttl")
	if ttlString == "" {
		ttlString = "24h"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid group session ttl: %w", err)
	}

	windowString := v.GetString("rate_limit.window")
	if windowString == "" {
		windowString = "1m"
	}

	window, err := time.ParseDuration(windowString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseDriver:    strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		GroupSessionTTL:   ttl,
		DefaultLanguage:   strings.ToLower(strings.TrimSpace(v.GetString("i18n.default_language"))),
		PictureBaseURL:    strings.TrimRight(v.GetString("report.picture_base_url"), "/"),
		DefaultPictureURL: v.GetString("report.default_picture_url"),
		RateLimitMax:      v.GetInt("rate_limit.max"),
		RateLimitWindow:   window,
		MetricsAdminOnly:  v.GetBool("metrics.admin_only"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}

	return cfg, nil
}
