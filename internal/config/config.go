// Package config loads the kiosk configuration from the environment and an optional
// .env file. Every variable carries the KIOSK_ prefix.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "KIOSK"

type Config struct {
	IdleTimeoutSeconds int      `mapstructure:"IDLE_TIMEOUT_SECONDS"`
	WarningLeadSeconds int      `mapstructure:"WARNING_LEAD_SECONDS"`
	MinutesPerPatient  int      `mapstructure:"MINUTES_PER_PATIENT"`
	Timezone           string   `mapstructure:"TIMEZONE"`
	Port               string   `mapstructure:"PORT"`
	LogLevel           string   `mapstructure:"LOG_LEVEL"`
	LogFormat          string   `mapstructure:"LOG_FORMAT"`
	RedisURL           string   `mapstructure:"REDIS_URL"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	AuditPIIPatterns   []string `mapstructure:"AUDIT_PII_PATTERNS"`
	AuditBuffer        int      `mapstructure:"AUDIT_BUFFER"`
	AuditStream        string   `mapstructure:"AUDIT_STREAM"`
	AuditEncryptionKey string   `mapstructure:"AUDIT_ENCRYPTION_KEY"`
	MaxInputSize       int      `mapstructure:"MAX_INPUT_SIZE"`
}

var keys = []string{
	"IDLE_TIMEOUT_SECONDS",
	"WARNING_LEAD_SECONDS",
	"MINUTES_PER_PATIENT",
	"TIMEZONE",
	"PORT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"REDIS_URL",
	"DATABASE_URL",
	"AUDIT_PII_PATTERNS",
	"AUDIT_BUFFER",
	"AUDIT_STREAM",
	"AUDIT_ENCRYPTION_KEY",
	"MAX_INPUT_SIZE",
}

// Load reads envFile (if it exists) and the environment. Environment variables win.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("IDLE_TIMEOUT_SECONDS", 120)
	v.SetDefault("WARNING_LEAD_SECONDS", 30)
	v.SetDefault("MINUTES_PER_PATIENT", 15)
	v.SetDefault("TIMEZONE", "Asia/Seoul")
	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("AUDIT_PII_PATTERNS", "patient,phone,birth,card,name")
	v.SetDefault("AUDIT_BUFFER", 256)
	v.SetDefault("AUDIT_STREAM", "kiosk:audit")
	v.SetDefault("MAX_INPUT_SIZE", 4096)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if envFile != "" {
		// Try reading the file, but don't fail if missing
		_ = v.ReadInConfig()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Entries may arrive as one comma separated string or already split; trim either way.
	cfg.AuditPIIPatterns = splitList(strings.Join(cfg.AuditPIIPatterns, ","))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IdleTimeout returns the session idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// WarningLead returns how long before the timeout the warning fires.
func (c *Config) WarningLead() time.Duration {
	return time.Duration(c.WarningLeadSeconds) * time.Second
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// EncryptionKey decodes AuditEncryptionKey. It returns nil when audit sealing is off.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.AuditEncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.AuditEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%s_AUDIT_ENCRYPTION_KEY must be hex: %w", EnvPrefix, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s_AUDIT_ENCRYPTION_KEY must decode to 32 bytes, got %d", EnvPrefix, len(key))
	}
	return key, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.IdleTimeoutSeconds <= 0 {
		return fmt.Errorf("%s_IDLE_TIMEOUT_SECONDS must be positive, got %d", EnvPrefix, c.IdleTimeoutSeconds)
	}
	if c.WarningLeadSeconds < 0 || c.WarningLeadSeconds >= c.IdleTimeoutSeconds {
		return fmt.Errorf("%s_WARNING_LEAD_SECONDS must be in [0, %d), got %d",
			EnvPrefix, c.IdleTimeoutSeconds, c.WarningLeadSeconds)
	}
	if c.MinutesPerPatient <= 0 {
		return fmt.Errorf("%s_MINUTES_PER_PATIENT must be positive, got %d", EnvPrefix, c.MinutesPerPatient)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%s_TIMEZONE: %w", EnvPrefix, err)
	}
	if c.RedisURL != "" && c.DatabaseURL != "" {
		return fmt.Errorf("set at most one of %s_REDIS_URL and %s_DATABASE_URL", EnvPrefix, EnvPrefix)
	}
	if c.MaxInputSize <= 0 {
		return fmt.Errorf("%s_MAX_INPUT_SIZE must be positive, got %d", EnvPrefix, c.MaxInputSize)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%s_LOG_FORMAT must be \"text\" or \"json\", got %q", EnvPrefix, c.LogFormat)
	}
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}
	return nil
}
