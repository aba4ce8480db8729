package wattboxctl

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig() will load a config file at the specified path. There are some
// general considerations about how this is done with spf13/viper:
//
// 1. There are intentionally no search paths set, so the config path has to
// be set explicitly
// 2. No data is ever written back to the config file by the tool
// 3. Parameters passed as CLI flags and environment variables always take
// precedence over values set in the config
func LoadConfig(path string) error {
	dir, filename, ext := splitPathForViper(path)
	viper.AddConfigPath(dir)
	viper.SetConfigName(filename)
	viper.SetConfigType(ext)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return fmt.Errorf("config file not found: %w", err)
		} else {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}
	return nil
}

func splitPathForViper(path string) (string, string, string) {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	return filepath.Dir(path), strings.TrimSuffix(filename, ext), strings.TrimPrefix(ext, ".")
}
