// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package config holds all service configuration, loaded in layers: built-in
// defaults, then an optional YAML config file, then environment variables.
// Environment variables win.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Supabase SupabaseConfig `koanf:"supabase"`
	Database DatabaseConfig `koanf:"database"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// SupabaseConfig configures the upstream CRM data source.
type SupabaseConfig struct {
	// URL is the Supabase project URL, e.g. https://xyz.supabase.co.
	URL string `koanf:"url"`
	// ServiceKey is the service-role API key used for server-side reads.
	ServiceKey string `koanf:"service_key"`
	// Timeout bounds a single PostgREST request.
	Timeout time.Duration `koanf:"timeout"`
	// PageSize is the range-paging window for bulk table fetches.
	PageSize int `koanf:"page_size"`
	// RateLimit caps outgoing requests per second; 0 disables the limiter.
	RateLimit float64 `koanf:"rate_limit"`
	// RateBurst is the limiter's burst allowance.
	RateBurst int `koanf:"rate_burst"`
}

// DatabaseConfig configures the local DuckDB snapshot store.
type DatabaseConfig struct {
	// Path is the DuckDB file location; ":memory:" keeps it in-process.
	Path string `koanf:"path"`
	// MaxMemory caps DuckDB memory, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB worker count; 0 uses all CPUs.
	Threads int `koanf:"threads"`
}

// RefreshConfig configures the background snapshot refresher.
type RefreshConfig struct {
	// Interval between full snapshot refreshes.
	Interval time.Duration `koanf:"interval"`
	// RetryAttempts per failed refresh before waiting for the next tick.
	RetryAttempts int `koanf:"retry_attempts"`
	// RetryDelay is the base backoff between retry attempts.
	RetryDelay time.Duration `koanf:"retry_delay"`
	// OnStartup forces a fetch before serving; when false the service
	// starts from the stored snapshot if one exists.
	OnStartup bool `koanf:"on_startup"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// Timeout applies to reads, writes and the request context.
	Timeout time.Duration `koanf:"timeout"`
	// Environment is "development" or "production"; production tightens
	// credential checks.
	Environment string `koanf:"environment"`
}

// APIConfig configures API behavior.
type APIConfig struct {
	// CacheTTL bounds how long computed analytics are served from cache.
	CacheTTL time.Duration `koanf:"cache_ttl"`
	// DefaultPageSize and MaxPageSize bound list endpoints.
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig configures authentication and perimeter limits.
type SecurityConfig struct {
	// AuthMode is "jwt" or "none".
	AuthMode string `koanf:"auth_mode"`
	// JWTSecret signs access tokens; required in jwt mode.
	JWTSecret string `koanf:"jwt_secret"`
	// SessionTimeout is the JWT lifetime.
	SessionTimeout time.Duration `koanf:"session_timeout"`
	// AdminUsername and AdminPassword (bcrypt hash or plaintext in
	// development) gate the login endpoint.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`
	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Authentication modes accepted by SecurityConfig.AuthMode.
const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

var validAuthModes = map[string]bool{
	AuthModeNone: true,
	AuthModeJWT:  true,
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// placeholderPatterns flag credential values the operator forgot to replace.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

// Validate checks the configuration for internal consistency. It is called
// automatically by LoadWithKoanf.
func (c *Config) Validate() error {
	if err := c.validateSupabase(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSupabase() error {
	if c.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if !strings.HasPrefix(c.Supabase.URL, "http://") && !strings.HasPrefix(c.Supabase.URL, "https://") {
		return fmt.Errorf("SUPABASE_URL must start with http:// or https://")
	}
	if c.Supabase.ServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.Supabase.PageSize < 1 || c.Supabase.PageSize > 10000 {
		return fmt.Errorf("SUPABASE_PAGE_SIZE must be between 1 and 10000")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("ENVIRONMENT must be development or production")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt")
	}

	if c.Security.AuthMode == "jwt" {
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in jwt mode")
		}
		if containsPlaceholder(c.Security.JWTSecret) {
			return fmt.Errorf("JWT_SECRET appears to be a placeholder value")
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
			return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required in jwt mode")
		}
		if containsPlaceholder(c.Security.AdminPassword) {
			return fmt.Errorf("ADMIN_PASSWORD appears to be a placeholder value")
		}
	}

	if c.Security.AuthMode == "none" && c.Server.Environment == "production" {
		return fmt.Errorf("AUTH_MODE none is not allowed in production")
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
