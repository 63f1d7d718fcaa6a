package log

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type LoggerConfig struct {
	Pattern   string           `mapstructure:"pattern"`
	Time      string           `mapstructure:"time"`
	Level     string           `mapstructure:"level"`
	Appenders []AppenderConfig `mapstructure:"appenders"`
}

// AppenderConfig selects an output by type; options are decoded per type.
type AppenderConfig struct {
	Type    string                 `mapstructure:"type"`
	Options map[string]interface{} `mapstructure:"options"`
}

type FileAppenderOpt struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Pattern: "%time [%level] %msg%n",
		Time:    "2006-01-02 15:04:05.000",
		Level:   "info",
		Appenders: []AppenderConfig{
			{Type: "console"},
		},
	}
}

func decodeFileOpt(opts map[string]interface{}) (FileAppenderOpt, error) {
	var fo FileAppenderOpt
	if err := mapstructure.Decode(opts, &fo); err != nil {
		return fo, fmt.Errorf("file appender options: %w", err)
	}
	if fo.Filename == "" {
		return fo, fmt.Errorf("file appender requires 'filename' option")
	}
	return fo, nil
}
