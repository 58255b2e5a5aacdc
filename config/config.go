package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string
	LogLevel string
	Port     string
	GinMode  string

	DBDriver string // sqlite or postgres
	DBDSN    string

	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Gemini     GeminiConfig
	Redis      RedisConfig

	RecipeRateLimit   float64 // tokens per second per user
	RecipeRateBurst   float64
	ReconcileInterval time.Duration
	// ExclusiveApproval blocks approving a request once the donation is no longer available.
	ExclusiveApproval bool
}

type JWTConfig struct {
	Secret   string
	Expiry   time.Duration
	Issuer   string
	Audience string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type RedisConfig struct {
	Addr     string
	Password string
}

var defaults = map[string]any{
	"APP_ENV":               "local",
	"LOG_LEVEL":             "info",
	"PORT":                  "8080",
	"GIN_MODE":              "",
	"DB_DRIVER":             "sqlite",
	"DB_DSN":                "annadan.db",
	"JWT_SECRET":            "annadan_dev_secret_change_me",
	"JWT_EXPIRY":            "168h",
	"JWT_ISSUER":            "annadan",
	"JWT_AUDIENCE":          "annadan-users",
	"CLOUDINARY_CLOUD_NAME": "",
	"CLOUDINARY_API_KEY":    "",
	"CLOUDINARY_API_SECRET": "",
	"GEMINI_API_KEY":        "",
	"GEMINI_MODEL":          "gemini-1.5-flash",
	"REDIS_ADDR":            "",
	"REDIS_PASSWORD":        "",
	"RECIPE_RATE_LIMIT":     0.2,
	"RECIPE_RATE_BURST":     3.0,
	"RECONCILE_INTERVAL":    "5m",
	"EXCLUSIVE_APPROVAL":    false,
}

// Load reads an optional .env file and then the process environment.
// Environment variables always win over the .env file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Port:     v.GetString("PORT"),
		GinMode:  v.GetString("GIN_MODE"),
		DBDriver: v.GetString("DB_DRIVER"),
		DBDSN:    v.GetString("DB_DSN"),
		JWT: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			Expiry:   v.GetDuration("JWT_EXPIRY"),
			Issuer:   v.GetString("JWT_ISSUER"),
			Audience: v.GetString("JWT_AUDIENCE"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
		},
		Gemini: GeminiConfig{
			APIKey: v.GetString("GEMINI_API_KEY"),
			Model:  v.GetString("GEMINI_MODEL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		RecipeRateLimit:   v.GetFloat64("RECIPE_RATE_LIMIT"),
		RecipeRateBurst:   v.GetFloat64("RECIPE_RATE_BURST"),
		ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
		ExclusiveApproval: v.GetBool("EXCLUSIVE_APPROVAL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWT.Expiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	if c.ReconcileInterval < 0 {
		return errors.New("RECONCILE_INTERVAL must not be negative")
	}
	return nil
}
