// Package config loads the expunge job settings and parses Dovecot's SQL
// configuration file.
//
// Job settings are layered, later sources overriding earlier ones:
//
//  1. built-in defaults (NewDefaultConfig)
//  2. an optional TOML file
//  3. an optional env file (KEY=value lines, never overriding the real environment)
//  4. the process environment (LOG_LEVEL, SQL_CONFIG, ...)
//
// Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultSQLConfigPath is where Dovecot keeps its SQL passdb/userdb settings.
const DefaultSQLConfigPath = "/etc/dovecot/conf.d/dovecot-sql.conf"

// Config holds the expunge job settings.
type Config struct {
	// SQLConfig is the Dovecot SQL config file holding the connect directive.
	SQLConfig string `toml:"sql_config" envconfig:"SQL_CONFIG"`

	// DoveadmPath is the doveadm binary, resolved through PATH when not absolute.
	DoveadmPath string `toml:"doveadm_path" envconfig:"DOVEADM_PATH"`

	// DryRun lists expiring messages but never expunges them.
	DryRun Switch `toml:"dry_run" envconfig:"EXPUNGE_DRY_RUN"`

	// MetricsFile, if set, receives the run metrics in Prometheus text format.
	MetricsFile string `toml:"metrics_file" envconfig:"EXPUNGE_METRICS_FILE"`

	LogLevel  string `toml:"log_level" envconfig:"LOG_LEVEL"`   // debug, info, warn, error, fatal
	LogOutput string `toml:"log_output" envconfig:"LOG_OUTPUT"` // stdout, stderr or syslog
}

// Switch is a boolean setting. An empty environment value reads as false.
type Switch bool

// Decode implements envconfig.Decoder.
func (s *Switch) Decode(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*s = false
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*s = Switch(b)
	return nil
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Output string
}

// Logging returns the logging part of the configuration.
func (c Config) Logging() LoggingConfig {
	return LoggingConfig{Level: c.LogLevel, Output: c.LogOutput}
}

// NewDefaultConfig returns the settings used when nothing else is configured.
func NewDefaultConfig() Config {
	return Config{
		SQLConfig:   DefaultSQLConfigPath,
		DoveadmPath: "doveadm",
		LogLevel:    "info",
		LogOutput:   "stdout",
	}
}

// Load builds the job configuration. configFile and envFile are optional.
// The returned warnings name unknown keys found in the TOML file.
func Load(configFile, envFile string) (Config, []string, error) {
	cfg := NewDefaultConfig()

	var warnings []string
	if configFile != "" {
		undecoded, err := LoadConfigFromFile(configFile, &cfg)
		if err != nil {
			return cfg, nil, err
		}
		for _, key := range undecoded {
			warnings = append(warnings, fmt.Sprintf("configuration file '%s' contains unknown key '%s'", configFile, key))
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, warnings, fmt.Errorf("failed to load env file '%s': %w", envFile, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, warnings, fmt.Errorf("invalid environment configuration: %w", err)
	}

	trimStringFields(reflect.ValueOf(&cfg).Elem())
	return cfg, warnings, nil
}

// LoadConfigFromFile decodes a TOML file over cfg and returns the keys it did not recognize.
func LoadConfigFromFile(configPath string, cfg *Config) ([]string, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	metadata, err := toml.Decode(string(content), cfg)
	if err != nil {
		return nil, enhanceConfigError(err)
	}

	var undecoded []string
	for _, key := range metadata.Undecoded() {
		undecoded = append(undecoded, key.String())
	}

	trimStringFields(reflect.ValueOf(cfg).Elem())
	return undecoded, nil
}

// enhanceConfigError adds a hint to the most common TOML mistakes.
func enhanceConfigError(err error) error {
	errMsg := err.Error()

	if strings.Contains(errMsg, "has already been defined") {
		return fmt.Errorf("%w\n\nHINT: You have a duplicate configuration key in your TOML file", err)
	}

	if strings.Contains(errMsg, "expected value but found \"f\"") ||
		strings.Contains(errMsg, "expected value but found \"t\"") {
		return fmt.Errorf("%w\n\nHINT: In TOML, boolean values must be exactly 'true' or 'false' (lowercase, unquoted)", err)
	}

	return fmt.Errorf("failed to parse configuration: %w", err)
}

func trimStringFields(v reflect.Value) {
	if !v.IsValid() || !v.CanSet() {
		return
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(strings.TrimSpace(v.String()))
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if field.CanSet() {
				trimStringFields(field)
			}
		}
	}
}
