package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort int    `validate:"gt=0,lt=65536"`
	Env        string `validate:"required"`
	LogLevel   string `validate:"oneof=trace debug info warn error"`
	LogFormat  string `validate:"oneof=console json"`

	JWTSecret      string        `validate:"required"`
	TokenTTL       time.Duration `validate:"gt=0"`
	BcryptCost     int           `validate:"gte=4,lte=31"`
	AllowedOrigins []string

	StoreDriver  string `validate:"oneof=memory sqlite postgres"`
	DatabasePath string `validate:"required_if=StoreDriver sqlite"`
	DatabaseURL  string `validate:"required_if=StoreDriver postgres"`

	BlobDriver     string `validate:"oneof=local s3"`
	UploadsPath    string `validate:"required_if=BlobDriver local"`
	S3             S3Config
	MaxUploadBytes int64 `validate:"gt=0"`

	JanitorSchedule string
	JanitorGrace    time.Duration `validate:"gte=1m"`
	StatsInterval   time.Duration `validate:"gte=0"`
	StaticDir       string
}

// S3Config holds the attachment bucket settings used when BlobDriver is "s3".
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // MinIO or other S3-compatible endpoint
	AccessKey string
	SecretKey string
	Prefix    string
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	tokenTTL, err := getDuration(v, "TOKEN_TTL")
	if err != nil {
		return nil, err
	}
	janitorGrace, err := getDuration(v, "JANITOR_GRACE")
	if err != nil {
		return nil, err
	}
	statsInterval, err := getDuration(v, "STATS_INTERVAL")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:     v.GetInt("PORT"),
		Env:            v.GetString("APP_ENV"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:      strings.ToLower(v.GetString("LOG_FORMAT")),
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenTTL:       tokenTTL,
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		AllowedOrigins: splitList(v.GetString("CORS_ORIGINS")),
		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabasePath:   v.GetString("DATABASE_PATH"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		BlobDriver:     strings.ToLower(v.GetString("BLOB_DRIVER")),
		UploadsPath:    v.GetString("UPLOADS_PATH"),
		S3: S3Config{
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Prefix:    v.GetString("S3_PREFIX"),
		},
		MaxUploadBytes:  v.GetInt64("MAX_UPLOAD_BYTES"),
		JanitorSchedule: v.GetString("JANITOR_SCHEDULE"),
		JanitorGrace:    janitorGrace,
		StatsInterval:   statsInterval,
		StaticDir:       v.GetString("STATIC_DIR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints that cannot be expressed by defaults alone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.BlobDriver == "s3" && c.S3.Bucket == "" {
		return fmt.Errorf("invalid configuration: S3_BUCKET is required when BLOB_DRIVER is s3")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 4000)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("JWT_SECRET", "replace_this_with_secure_secret")
	v.SetDefault("TOKEN_TTL", "2h")
	v.SetDefault("BCRYPT_COST", 8)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("DATABASE_PATH", "./taskflow.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BLOB_DRIVER", "local")
	v.SetDefault("UPLOADS_PATH", "./uploads")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PREFIX", "attachments/")
	v.SetDefault("MAX_UPLOAD_BYTES", 32<<20)
	v.SetDefault("JANITOR_SCHEDULE", "@every 1h")
	v.SetDefault("JANITOR_GRACE", "1h")
	v.SetDefault("STATS_INTERVAL", "15s")
	v.SetDefault("STATIC_DIR", "")
}

func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
