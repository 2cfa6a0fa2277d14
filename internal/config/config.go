// Package config loads command-line settings from .env files, an optional
// tradegate.yaml and TRADEGATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"tradegate/pkg/core"
)

// EnvPrefix is prepended to every environment key, e.g. TRADEGATE_LOG_LEVEL
// or TRADEGATE_KRAKEN_API_KEY.
const EnvPrefix = "TRADEGATE"

// Config wraps the merged settings.
type Config struct {
	v *viper.Viper
}

// Load reads envFiles (".env" when none are given) into the environment,
// then layers tradegate.yaml from the working directory under the
// environment. Missing files are not errors.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("timeout", 10*time.Second)

	v.SetConfigName("tradegate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// LogLevel returns the configured zerolog level, defaulting to info when
// the setting does not parse.
func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.v.GetString("log_level"))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Timeout is the per-request timeout applied to every venue.
func (c *Config) Timeout() time.Duration {
	return c.v.GetDuration("timeout")
}

// Credentials returns the key pair for a venue, or nil when no API key is set.
func (c *Config) Credentials(exchange string) *core.Credentials {
	return c.credentials(venueKey(exchange), "")
}

// BackupCredentials returns the numbered key pairs for a venue, read from
// api_key_2, secret_key_2, passphrase_2 and so on. The scan stops at the
// first number without an API key.
func (c *Config) BackupCredentials(exchange string) []core.Credentials {
	prefix := venueKey(exchange)

	var backups []core.Credentials
	for n := 2; ; n++ {
		creds := c.credentials(prefix, fmt.Sprintf("_%d", n))
		if creds == nil {
			return backups
		}
		backups = append(backups, *creds)
	}
}

func (c *Config) credentials(prefix, suffix string) *core.Credentials {
	creds := &core.Credentials{
		APIKey:     c.v.GetString(prefix + ".api_key" + suffix),
		SecretKey:  c.v.GetString(prefix + ".secret_key" + suffix),
		Passphrase: c.v.GetString(prefix + ".passphrase" + suffix),
	}
	if creds.APIKey == "" {
		return nil
	}
	return creds
}

// Apply overlays the settings onto a venue's default config. It is meant
// to be passed to registry.WithConfig.
func (c *Config) Apply(config *core.Config) {
	prefix := venueKey(config.Exchange)

	if timeout := c.Timeout(); timeout > 0 {
		config.WithTimeout(timeout)
	}
	if baseURL := c.v.GetString(prefix + ".base_url"); baseURL != "" {
		config.WithBaseURL(baseURL)
	}
	if creds := c.Credentials(config.Exchange); creds != nil {
		config.WithCredentials(creds)
	}
	config.WithBackupCredentials(c.BackupCredentials(config.Exchange)...)
	config.LogLevel = configLevel(c.LogLevel())
}

// configLevel clamps a zerolog level to the names core.Config accepts.
func configLevel(level zerolog.Level) string {
	switch {
	case level <= zerolog.DebugLevel:
		return "debug"
	case level >= zerolog.ErrorLevel:
		return "error"
	}
	return level.String()
}

func venueKey(exchange string) string {
	return strings.ToLower(exchange)
}
