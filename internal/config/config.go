// Package config loads vira settings from config files, VIRA_* environment
// variables and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/peorobertsson/vira/internal/debug"
	"github.com/peorobertsson/vira/internal/vira"
)

// DefaultURL is the VIRA Jira instance.
const DefaultURL = "https://jira-vira.volvocars.biz"

const envPrefix = "VIRA"

var v *viper.Viper

// Initialize sets up the viper configuration singleton
// Should be called once at application startup
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configPath := findConfigFile()

	// Environment variables take precedence over the config file,
	// e.g. VIRA_USER, VIRA_TOKEN, VIRA_HTTP_TIMEOUT.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := vira.DefaultFieldConfig()

	v.SetDefault("url", DefaultURL)
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("token", "")
	v.SetDefault("create-comment", "")

	v.SetDefault("fields.not-copyable", def.NotCopyable)
	v.SetDefault("fields.feature-name", def.FeatureName)
	v.SetDefault("fields.capability-link", def.CapabilityLink)
	v.SetDefault("fields.subtask-not-settable", def.SubtaskNotSettable)
	v.SetDefault("fields.multi-value", def.MultiValue)

	v.SetDefault("epic-link.strategy", vira.EpicLinkAgile) // agile | field
	v.SetDefault("epic-link.field", "customfield_10101")

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.rate-limit", 10.0)
	v.SetDefault("http.rate-burst", 5)
	v.SetDefault("http.max-retry-elapsed", "30s")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		debug.Logf("Debug: loaded config from %s\n", v.ConfigFileUsed())
	} else {
		debug.Logf("Debug: no config.yaml found; using defaults and environment variables\n")
	}

	return nil
}

// findConfigFile returns the first config file found, in order:
// $VIRA_CONFIG, .vira/config.yaml in the working directory or a parent,
// the user config directory (vira/config.yaml), ~/.vira/config.yaml.
func findConfigFile() string {
	if p := os.Getenv("VIRA_CONFIG"); p != "" {
		return p
	}

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			p := filepath.Join(dir, ".vira", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	for _, p := range userConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func userConfigPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "vira", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".vira", "config.yaml"))
	}
	return paths
}

// DefaultConfigPath is where `vira config init` writes when no path is given.
func DefaultConfigPath() (string, error) {
	paths := userConfigPaths()
	if len(paths) == 0 {
		return "", fmt.Errorf("cannot determine user config directory")
	}
	return paths[0], nil
}

// ResetForTesting clears the config state, allowing Initialize() to be called again.
// WARNING: Not thread-safe. Only call from single-threaded test contexts.
func ResetForTesting() {
	v = nil
}

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault    ConfigSource = "default"
	SourceConfigFile ConfigSource = "config_file"
	SourceEnvVar     ConfigSource = "env_var"
	SourceFlag       ConfigSource = "flag"
)

// EnvVar returns the environment variable bound to a config key.
func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// GetValueSource returns the source of a configuration value.
// Priority (highest to lowest): env var > config file > default.
// Flags are handled by the caller since viper doesn't know about cobra flags.
func GetValueSource(key string) ConfigSource {
	if v == nil {
		return SourceDefault
	}
	if os.Getenv(EnvVar(key)) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

// Get retrieves a configuration value of any type.
func Get(key string) interface{} {
	if v == nil {
		return nil
	}
	return v.Get(key)
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetFloat64 retrieves a float configuration value
func GetFloat64(key string) float64 {
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// GetStringSlice retrieves a string slice configuration value.
// Comma separated strings (as set through the environment) are split.
func GetStringSlice(key string) []string {
	if v == nil {
		return nil
	}
	raw := v.GetStringSlice(key)
	var out []string
	for _, s := range raw {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Keys returns every known configuration key, sorted.
func Keys() []string {
	if v == nil {
		return nil
	}
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether the value of key must not be printed.
func IsSecretKey(key string) bool {
	return key == "password" || key == "token"
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// ConfigFileUsed returns the path to the loaded config file, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// Fields returns the field handling configuration.
func Fields() vira.FieldConfig {
	return vira.FieldConfig{
		NotCopyable:        GetStringSlice("fields.not-copyable"),
		FeatureName:        GetString("fields.feature-name"),
		CapabilityLink:     GetString("fields.capability-link"),
		SubtaskNotSettable: GetStringSlice("fields.subtask-not-settable"),
		MultiValue:         GetStringSlice("fields.multi-value"),
	}
}

// EpicLinker returns the configured epic-link strategy.
func EpicLinker() (vira.EpicLinker, error) {
	return vira.NewEpicLinker(GetString("epic-link.strategy"), GetString("epic-link.field"))
}

// HTTPConfig holds the tracker client settings.
type HTTPConfig struct {
	Timeout         time.Duration
	RateLimit       float64
	RateBurst       int
	MaxRetryElapsed time.Duration
}

// HTTP returns the tracker client settings.
func HTTP() HTTPConfig {
	return HTTPConfig{
		Timeout:         GetDuration("http.timeout"),
		RateLimit:       GetFloat64("http.rate-limit"),
		RateBurst:       GetInt("http.rate-burst"),
		MaxRetryElapsed: GetDuration("http.max-retry-elapsed"),
	}
}

// CreateComment returns the comment added to created issues. When not
// configured it names the tool and its version.
func CreateComment(version string) string {
	if c := GetString("create-comment"); c != "" {
		return c
	}
	return fmt.Sprintf("This issue was created by vira %s", version)
}
