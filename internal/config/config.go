// Package config provides client configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all client configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	// Tenant
	Domain   string `env:"USERSAPI_DOMAIN,required"`
	ClientID string `env:"USERSAPI_CLIENT_ID,required"`

	// Management API access token. Optional here so commands that do not
	// call the API can run; the CLI checks it before any request.
	Token string `env:"USERSAPI_TOKEN"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Networking client timeouts
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`

	// Log every outbound request
	HTTPLogging bool `env:"HTTP_LOGGING" envDefault:"false"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// HasToken returns true if a management token is configured.
func (c *Config) HasToken() bool {
	return c.Token != ""
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
