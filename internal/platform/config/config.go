// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPConfig struct {
	Addr               string `env:"HTTP_ADDR" env-default:":8080"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	// RateLimitRPS bounds form submissions per client; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" env-default:"2"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" env-default:"10"`
}

// APIConfig points the transport at the FilmHive REST API. BaseURL is the one
// canonical origin+prefix; every endpoint path is appended to it.
type APIConfig struct {
	BaseURL string        `env:"FILMHIVE_API_URL" env-default:"http://localhost:5000/api"`
	Timeout time.Duration `env:"FILMHIVE_API_TIMEOUT" env-default:"10s"`
}

// CredentialsConfig lists the token sources, checked in order: static token,
// token file, then Redis.
type CredentialsConfig struct {
	Token     string `env:"FILMHIVE_TOKEN"`
	TokenFile string `env:"FILMHIVE_TOKEN_FILE"`
	RedisURL  string `env:"REDIS_URL"`
	TokenKey  string `env:"TOKEN_KEY" env-default:"accessToken"`
	JWTSecret string `env:"JWT_SECRET"`
}

type NATSConfig struct {
	URL           string        `env:"NATS_URL"`
	MaxReconnects int           `env:"NATS_MAX_RECONNECTS" env-default:"5"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT" env-default:"2s"`
}

type AppConfig struct {
	ServiceName   string `env:"SERVICE_NAME" env-default:"filmhive-console"`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat     string `env:"LOG_FORMAT" env-default:"json"`
	ConfirmSecret string `env:"CONFIRM_SECRET"`
	DevFakeAPI    bool   `env:"DEV_FAKE_API" env-default:"false"`

	HTTP        HTTPConfig
	API         APIConfig
	Credentials CredentialsConfig
	NATS        NATSConfig
}

func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("read env: %w", err)
	}
	cfg.ServiceName = strings.TrimSpace(cfg.ServiceName)
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.ServiceName == "" {
		return errors.New("SERVICE_NAME is required")
	}
	if c.API.BaseURL == "" && !c.DevFakeAPI {
		return errors.New("FILMHIVE_API_URL is required")
	}
	if c.API.Timeout <= 0 {
		return errors.New("FILMHIVE_API_TIMEOUT must be positive")
	}
	if c.HTTP.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	if c.NATS.MaxReconnects < 0 {
		return errors.New("NATS_MAX_RECONNECTS must not be negative")
	}
	if strings.TrimSpace(c.Credentials.TokenKey) == "" {
		return errors.New("TOKEN_KEY must not be empty")
	}
	return nil
}
