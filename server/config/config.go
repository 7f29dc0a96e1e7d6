// Package config loads server settings through viper: built-in defaults,
// then an optional config file, then WATCHPARTY_* environment variables,
// then command-line flags bound by the cmd package.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime settings for the watchparty server.
type Config struct {
	// ListenAddr is the websocket bind address, e.g. ":7272".
	ListenAddr string `mapstructure:"listen_addr"`

	// AllowedOrigins is the set of Origin headers accepted during the
	// websocket handshake. "*" accepts any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AdminUsername and AdminPassword guard the administrative UI. They are
	// passed through to it and have no effect on room behavior.
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`

	// UserDirectoryURL is the base URL of the token-resolving user service.
	UserDirectoryURL string `mapstructure:"user_directory_url"`

	// ContentDirectoryURL is the base URL of the show metadata service.
	ContentDirectoryURL string `mapstructure:"content_directory_url"`

	// ShowCacheTTL bounds the read-through show cache.
	ShowCacheTTL time.Duration `mapstructure:"show_cache_ttl"`

	// LogFormat is "json" or "text".
	LogFormat string `mapstructure:"log_format"`
}

// New returns a viper instance carrying the server defaults, so the cmd
// layer can bind flags onto it before Load is called.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("listen_addr", ":7272")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("admin_username", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("user_directory_url", "http://localhost:4000")
	v.SetDefault("content_directory_url", "http://localhost:4001")
	v.SetDefault("show_cache_ttl", 5*time.Minute)
	v.SetDefault("log_format", "json")

	v.SetEnvPrefix("watchparty")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file and unmarshals the effective settings.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}
