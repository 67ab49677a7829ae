package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/path-helpers/pathfs"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Walk    WalkConfig    `mapstructure:"walk"`
	Backend BackendConfig `mapstructure:"backend"`
	Log     LogConfig     `mapstructure:"log"`
}

// WalkConfig stores the default traversal policy.
type WalkConfig struct {
	ErrorMode       string   `mapstructure:"errorMode"`
	NamePattern     string   `mapstructure:"namePattern"`
	ExcludePatterns []string `mapstructure:"excludePatterns"`
	IgnoreFile      string   `mapstructure:"ignoreFile"`
	FollowSymlinks  bool     `mapstructure:"followSymlinks"`
}

// BackendConfig selects the filesystem accessor.
type BackendConfig struct {
	Kind string `mapstructure:"kind"`
	Root string `mapstructure:"root"`
}

// LogConfig stores logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("walk.errorMode", internal.DefaultErrorMode)
	v.SetDefault("walk.namePattern", "")
	v.SetDefault("walk.excludePatterns", []string{})
	v.SetDefault("walk.ignoreFile", internal.DefaultIgnoreFileName)
	v.SetDefault("walk.followSymlinks", false)
	v.SetDefault("backend.kind", internal.DefaultBackendKind)
	v.SetDefault("backend.root", "/")
	v.SetDefault("log.level", internal.DefaultLogLevel)

	v.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	v.AutomaticEnv()                                   // e.g. walk.errorMode becomes PATHFS_WALK_ERRORMODE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	AppConfig = cfg
	return &cfg, nil
}
