// Package config handles configuration loading using viper.
package config

import (
	"time"

	"firestige.xyz/strix/internal/log"
)

type Config struct {
	Device  DeviceConfig      `mapstructure:"device"`
	Capture CaptureConfig     `mapstructure:"capture"`
	Logger  *log.LoggerConfig `mapstructure:"log"`
}

// DeviceConfig selects and shapes the card access layer.
type DeviceConfig struct {
	// Profile is the firmware profile YAML (register map + buffer layout).
	Profile string `mapstructure:"profile"`
	Card    int    `mapstructure:"card"`
	// Simulate replaces the card with the in-memory simulator.
	Simulate bool `mapstructure:"simulate"`
	// Buffers overrides the profile's buffer sizes, e.g. ["2G", "2G"].
	Buffers []string `mapstructure:"buffers"`
	// ReadChunk caps single memory reads, e.g. "1G".
	ReadChunk string `mapstructure:"read_chunk"`
	PtpDomain uint64 `mapstructure:"ptp_domain"`
}

type CaptureConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SnapLen      uint32        `mapstructure:"snap_len"`
}
