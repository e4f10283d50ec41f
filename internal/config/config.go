// Package config manages remsync configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// an optional config file (~/.config/remsync/config.yaml), and REMSYNC_*
// environment variables. Command-line flags override all of them at the
// CLI layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default values.
const (
	// DefaultAddress is the device's USB network address.
	DefaultAddress = "10.11.99.1"

	// DefaultDocumentDir is where xochitl keeps the flat document store.
	DefaultDocumentDir = "/home/root/.local/share/remarkable/xochitl"

	// DefaultStageDir is the remote staging directory. It lives on the
	// same filesystem as the document store so the final mv is atomic.
	DefaultStageDir = "/home/root/.remsync-stage"

	// DefaultSocket is the local ssh control socket path.
	DefaultSocket = "/tmp/remsync-ssh.socket"
)

// Config holds the resolved settings for one invocation.
type Config struct {
	// Address is the device's IP or hostname.
	Address string `mapstructure:"address"`

	// DocumentDir is the remote document store directory.
	DocumentDir string `mapstructure:"document_dir"`

	// StageDir is the remote staging directory for atomic installs.
	StageDir string `mapstructure:"stage_dir"`

	// Socket is the local ssh control socket path.
	Socket string `mapstructure:"socket"`

	// Policy is the default conflict policy name.
	Policy string `mapstructure:"policy"`

	// Excludes are default exclusion patterns applied to every run.
	Excludes []string `mapstructure:"excludes"`
}

// Load resolves the configuration from defaults, the optional config file,
// and the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("address", DefaultAddress)
	v.SetDefault("document_dir", DefaultDocumentDir)
	v.SetDefault("stage_dir", DefaultStageDir)
	v.SetDefault("socket", DefaultSocket)
	v.SetDefault("policy", "skip")

	v.SetEnvPrefix("REMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "remsync"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &cfg, nil
}
