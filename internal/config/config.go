package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envProduction = "production"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	Env         string `envconfig:"APP_ENV" default:"development"`
	SwaggerHost string `envconfig:"SWAGGER_HOST"`

	MySQLDSN        string        `envconfig:"MYSQL_DSN" default:"user:password@tcp(localhost:3306)/localbiz?charset=utf8mb4&parseTime=True&loc=UTC"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	RedisPass string `envconfig:"REDIS_PASSWORD"`

	JWTSecret       string        `envconfig:"JWT_SECRET" default:"change-me"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"24h"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`

	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	AuthRateLimit     int           `envconfig:"AUTH_RATE_LIMIT" default:"60"`
	AllowPastBookings bool          `envconfig:"ALLOW_PAST_BOOKINGS" default:"false"`
}

// Load builds Config from the environment, reading a .env file first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() && (cfg.JWTSecret == "" || cfg.JWTSecret == "change-me") {
		return nil, fmt.Errorf("load config: JWT_SECRET must be set in production")
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == envProduction
}
