// Package config provides environment-based configuration for the build server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the build server.
type Config struct {
	// Server configuration
	Host string
	Port int

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// SettingsPath is the file holding persisted key/value settings
	// (saved paths, webhook URL, git passphrase).
	SettingsPath string

	// Session configuration
	Session SessionConfig

	// Notify configuration for the webhook stage
	Notify NotifyConfig

	// Secrets holds the age key pair used to encrypt the stored git
	// passphrase at rest. Optional; without it the passphrase is stored
	// in plaintext.
	Secrets SecretsConfig
}

// SessionConfig holds build-session specific configuration.
type SessionConfig struct {
	// Retention is how long a session stays in the registry after
	// reaching a terminal status.
	Retention time.Duration

	// PollInterval is the progress-stream wake interval.
	PollInterval time.Duration
}

// NotifyConfig holds webhook and IP-lookup configuration.
type NotifyConfig struct {
	// Timeout bounds each outbound webhook post and IP-lookup call.
	Timeout time.Duration
}

// SecretsConfig holds the age key pair for secret storage.
type SecretsConfig struct {
	// AgePublicKey encrypts stored secrets. Format: age1... (Bech32 encoded)
	AgePublicKey string
	// AgePrivateKey decrypts stored secrets. Format: AGE-SECRET-KEY-1...
	AgePrivateKey string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Host:            getEnv("APPPACK_HOST", "0.0.0.0"),
		Port:            getIntEnv("APPPACK_PORT", 3000),
		ShutdownTimeout: getDurationEnv("APPPACK_SHUTDOWN_TIMEOUT", 10*time.Second),
		SettingsPath:    getEnv("APPPACK_SETTINGS_FILE", "settings.yaml"),
		Session: SessionConfig{
			Retention:    getDurationEnv("APPPACK_SESSION_RETENTION", 5*time.Minute),
			PollInterval: getDurationEnv("APPPACK_PROGRESS_INTERVAL", 200*time.Millisecond),
		},
		Notify: NotifyConfig{
			Timeout: getDurationEnv("APPPACK_NOTIFY_TIMEOUT", 5*time.Second),
		},
		Secrets: SecretsConfig{
			AgePublicKey:  getEnv("APPPACK_AGE_PUBLIC_KEY", ""),
			AgePrivateKey: getEnv("APPPACK_AGE_PRIVATE_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Session.Retention <= 0 {
		return fmt.Errorf("session retention must be positive, got %v", c.Session.Retention)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("progress interval must be positive, got %v", c.Session.PollInterval)
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify timeout must be positive, got %v", c.Notify.Timeout)
	}
	return nil
}

// ListenAddr returns the host:port string the HTTP server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv returns an integer environment variable or a default.
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv returns a duration environment variable or a default.
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
