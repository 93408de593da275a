package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	ArchiveList    []string `mapstructure:"archive_list"`
	IgnoreList     []string `mapstructure:"ignore_list"`
	ShallowCompare bool     `mapstructure:"shallow_compare"`
	DBPath         string   `mapstructure:"db_path"`
	DaemonPort     int      `mapstructure:"daemon_port"`
	BufferSize     int      `mapstructure:"buffer_size"`
	DebounceMS     int      `mapstructure:"debounce_ms"`
}

var Default = Config{
	ArchiveList:    []string{".git"},
	IgnoreList:     []string{"__pycache__", ".ipynb_checkpoints"},
	ShallowCompare: true,
	DBPath:         "coldcopy.db",
	DaemonPort:     9031,
	BufferSize:     100,
	DebounceMS:     2000,
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".coldcopy")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	viper.SetDefault("archive_list", Default.ArchiveList)
	viper.SetDefault("ignore_list", Default.IgnoreList)
	viper.SetDefault("shallow_compare", Default.ShallowCompare)
	viper.SetDefault("db_path", filepath.Join(configDir, Default.DBPath))
	viper.SetDefault("daemon_port", Default.DaemonPort)
	viper.SetDefault("buffer_size", Default.BufferSize)
	viper.SetDefault("debounce_ms", Default.DebounceMS)

	viper.SetEnvPrefix("COLDCOPY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if ok := errors.As(err, &notFoundErr); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
