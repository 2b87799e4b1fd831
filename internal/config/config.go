// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret                string  `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes            int     `mapstructure:"JWT_TTL_MINUTES"`
	RecentLoginWindowMinutes int     `mapstructure:"RECENT_LOGIN_WINDOW_MINUTES"`
	Port                     string  `mapstructure:"PORT"`
	DBHost                   string  `mapstructure:"DB_HOST"`
	DBPort                   string  `mapstructure:"DB_PORT"`
	DBUser                   string  `mapstructure:"DB_USER"`
	DBPassword               string  `mapstructure:"DB_PASSWORD"`
	DBName                   string  `mapstructure:"DB_NAME"`
	DBSSLMode                string  `mapstructure:"DB_SSLMODE"`
	DBSchemaMode             string  `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDrop   bool    `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBMaxOpenConns           int     `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int     `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int     `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSlowQueryMillis        int     `mapstructure:"DB_SLOW_QUERY_MS"`
	RedisURL                 string  `mapstructure:"REDIS_URL"`
	AllowedOrigins           string  `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags             string  `mapstructure:"FEATURE_FLAGS"`
	Env                      string  `mapstructure:"APP_ENV"`
	StorageDir               string  `mapstructure:"STORAGE_DIR"`
	PublicBaseURL            string  `mapstructure:"PUBLIC_BASE_URL"`
	ImageMaxUploadSizeMB     int     `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	FileMaxUploadSizeMB      int     `mapstructure:"FILE_MAX_UPLOAD_SIZE_MB"`
	GeminiAPIKey             string  `mapstructure:"GEMINI_API_KEY"`
	GeminiModel              string  `mapstructure:"GEMINI_MODEL"`
	AIRequestTimeoutSeconds  int     `mapstructure:"AI_REQUEST_TIMEOUT_SECONDS"`
	RecordingIdleMinutes     int     `mapstructure:"RECORDING_IDLE_TIMEOUT_MINUTES"`
	ModerationWordlist       string  `mapstructure:"MODERATION_WORDLIST"`
	SMTPHost                 string  `mapstructure:"SMTP_HOST"`
	SMTPPort                 int     `mapstructure:"SMTP_PORT"`
	SMTPUser                 string  `mapstructure:"SMTP_USER"`
	SMTPPassword             string  `mapstructure:"SMTP_PASSWORD"`
	MailFrom                 string  `mapstructure:"MAIL_FROM"`
	TracingEnabled           bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter          string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint             string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio       float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "storyhouse")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SLOW_QUERY_MS", 200)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_TTL_MINUTES", 60*24)
	viper.SetDefault("RECENT_LOGIN_WINDOW_MINUTES", 5)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "ai_chat=on,recording=on")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("STORAGE_DIR", "./data/objects")
	viper.SetDefault("PUBLIC_BASE_URL", "/media")
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)
	viper.SetDefault("FILE_MAX_UPLOAD_SIZE_MB", 20)
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	viper.SetDefault("AI_REQUEST_TIMEOUT_SECONDS", 60)
	viper.SetDefault("RECORDING_IDLE_TIMEOUT_MINUTES", 30)
	viper.SetDefault("MODERATION_WORDLIST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MAIL_FROM", "no-reply@storyhouse.local")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// JWTTTL is the lifetime of an issued session token.
func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// RecentLoginWindow bounds how old a login may be for sensitive operations.
func (c *Config) RecentLoginWindow() time.Duration {
	if c.RecentLoginWindowMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.RecentLoginWindowMinutes) * time.Minute
}

// AIRequestTimeout bounds a single generative model call.
func (c *Config) AIRequestTimeout() time.Duration {
	if c.AIRequestTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.AIRequestTimeoutSeconds) * time.Second
}

// RecordingIdleTimeout is how long an untouched recording session survives.
func (c *Config) RecordingIdleTimeout() time.Duration {
	if c.RecordingIdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.RecordingIdleMinutes) * time.Minute
}

// MailEnabled reports whether outbound mail is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.FileMaxUploadSizeMB <= 0 {
		return errors.New("FILE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
