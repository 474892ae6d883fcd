// Package config loads corral's global settings from defaults, a YAML config
// file, CORRAL_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName = "corral"

	// EnvPrefix is prepended to upper-cased keys, e.g. CORRAL_STATE_DB.
	EnvPrefix = "CORRAL"
)

// Config represents the complete corral configuration.
type Config struct {
	Vagrant VagrantConfig `mapstructure:"vagrant"`

	// TimeoutMillis bounds each vagrant command unless a machine overrides
	// it. Zero or negative disables the deadline.
	TimeoutMillis int64 `mapstructure:"timeout_millis"`

	// KillOnTimeout kills the vagrant process group when a command times out.
	KillOnTimeout bool `mapstructure:"kill_on_timeout"`

	// StateDB is the bbolt file holding registered machines.
	StateDB string `mapstructure:"state_db"`

	Log LogConfig `mapstructure:"log"`
}

// VagrantConfig locates the vagrant executable.
type VagrantConfig struct {
	Binary string `mapstructure:"binary"`
}

// LogConfig controls containerd/log output.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Vagrant: VagrantConfig{
			Binary: "vagrant",
		},
		TimeoutMillis: (15 * time.Minute).Milliseconds(),
		KillOnTimeout: true,
		StateDB:       filepath.Join(DataDir(), "state.db"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Timeout returns the default per-command timeout. Zero means no deadline.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutMillis <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("vagrant.binary", defaults.Vagrant.Binary)
	v.SetDefault("timeout_millis", defaults.TimeoutMillis)
	v.SetDefault("kill_on_timeout", defaults.KillOnTimeout)
	v.SetDefault("state_db", defaults.StateDB)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// New returns a viper instance with defaults and environment binding
// applied, and reads configFile if set or the default config file if it
// exists. An explicitly named file that cannot be read is an error.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", ConfigFile(), err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.StateDB = expandHome(cfg.StateDB)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".config", appName)
}

// ConfigFile returns the path to the default config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory holding corral's state database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
