package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/strix/internal/log"
)

// Load reads the configuration file and applies defaults. Environment
// variables with the STRIX_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	fileExt := filepath.Ext(filename)
	nameWithoutExt := strings.TrimSuffix(filename, fileExt)

	v.SetConfigName(nameWithoutExt)
	v.SetConfigType(strings.TrimPrefix(fileExt, "."))
	v.AddConfigPath(dir)

	v.SetEnvPrefix("STRIX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

func applyDefaults(config *Config) {
	if config.Logger == nil {
		config.Logger = log.DefaultConfig()
	}
	if config.Capture.PollInterval == 0 {
		config.Capture.PollInterval = 5 * time.Second
	}
	if config.Device.PtpDomain == 0 {
		config.Device.PtpDomain = 24
	}
	if len(config.Device.Buffers) == 0 {
		config.Device.Buffers = []string{"2G", "2G", "2G", "2G"}
	}
	if config.Device.ReadChunk == "" {
		config.Device.ReadChunk = "1G"
	}
}
