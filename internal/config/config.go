// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

// Package config loads ropkit's ambient settings
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const (
	AppName         = "ropkit"
	DefaultLogLevel = "warn"
	ConfigName      = "config"
	ConfigType      = "yaml"
)

// LogLevels lists the accepted values of log_level.
var LogLevels = []string{"error", "warn", "info", "debug"}

// Settings holds the application settings that are not runtime options.
type Settings struct {
	LogLevel string `mapstructure:"log_level"`
	// LogFile is the log destination. Empty means stderr.
	LogFile string `mapstructure:"log_file"`
	// AuditFile receives option changes as JSON lines. Empty disables it.
	AuditFile string `mapstructure:"audit_file"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	return &Settings{
		LogLevel: DefaultLogLevel,
	}
}

// SearchPaths returns the directories searched for config.yaml.
func SearchPaths() []string {
	return []string{"$HOME/." + AppName, "."}
}

// LoadSettings reads settings into v from the first config.yaml found in
// paths, or SearchPaths when none are given. A missing file is not an error.
// The environment is never consulted.
func LoadSettings(v *viper.Viper, paths ...string) (*Settings, error) {
	if len(paths) == 0 {
		paths = SearchPaths()
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigType)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))

	if errs := NewSettingsValidator().Validate(&s); len(errs) > 0 {
		return nil, errs
	}
	return &s, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("audit_file", d.AuditFile)
}

// Level converts the configured log level to a slog level.
func (s *Settings) Level() slog.Level {
	level, _ := ParseLevel(s.LogLevel)
	return level
}

// ParseLevel maps a log_level value to a slog level. Unknown names yield
// slog.LevelWarn and false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "error":
		return slog.LevelError, true
	case "warn":
		return slog.LevelWarn, true
	case "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	}
	return slog.LevelWarn, false
}
