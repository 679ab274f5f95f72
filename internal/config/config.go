// Package config holds runtime configuration for heliospice.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration.
// Values are populated from heliospice.yaml, HELIOSPICE_* env vars, and
// CLI flags, in increasing order of precedence.
type Config struct {
	// KernelDir is the flat directory holding cached kernel files.
	KernelDir string `mapstructure:"kernel_dir"`

	// DownloadTimeout bounds a single kernel download.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`

	// ListingTimeout bounds a remote directory listing fetch.
	ListingTimeout time.Duration `mapstructure:"listing_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// MetricsAddr, when non-empty, exposes prometheus metrics on this
	// address (e.g. ":9188") while the server runs.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultKernelDir returns the default cache location under the user's
// home directory.
func DefaultKernelDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".heliospice", "kernels")
	}
	return filepath.Join(home, ".heliospice", "kernels")
}

// Load reads configuration from viper, applying built-in defaults for
// any values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("kernel_dir", DefaultKernelDir())
	viper.SetDefault("download_timeout", 5*time.Minute)
	viper.SetDefault("listing_timeout", 30*time.Second)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("metrics_addr", "")

	viper.SetEnvPrefix("heliospice")
	viper.AutomaticEnv()

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
