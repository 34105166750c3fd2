package robot

import (
	"encoding/json"
	"os"
	"time"
)

const DefaultConfigFile = "armctl.json"

// Config holds the controller configuration
type Config struct {
	Robot1 DeviceConfig `json:"robot1"`
	Robot2 DeviceConfig `json:"robot2"`
	Feeder DeviceConfig `json:"feeder,omitempty"`

	Speed      int `json:"speed"`      // percent, 1-100
	Smoothness int `json:"smoothness"` // percent, 1-100

	PathwayDir     string `json:"pathway_dir"`
	JournalPath    string `json:"journal_path"`
	MoveTimeoutSec int    `json:"move_timeout_sec"`
}

// DeviceConfig holds configuration for a single serial device
type DeviceConfig struct {
	Port string `json:"port"`
	Baud int    `json:"baud,omitempty"`
}

// IsSet returns true if the device has a port assigned
func (d *DeviceConfig) IsSet() bool {
	return d.Port != ""
}

// DefaultConfig returns a config with sane defaults and no ports assigned
func DefaultConfig() *Config {
	return &Config{
		Speed:          25,
		Smoothness:     50,
		PathwayDir:     "pathways",
		JournalPath:    "armctl.db",
		MoveTimeoutSec: 60,
	}
}

// MoveTimeout returns the configured move timeout as a duration
func (c *Config) MoveTimeout() time.Duration {
	if c.MoveTimeoutSec <= 0 {
		return DefaultMoveTimeout
	}
	return time.Duration(c.MoveTimeoutSec) * time.Second
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Speed < 1 || cfg.Speed > 100 {
		cfg.Speed = 25
	}
	if cfg.Smoothness < 1 || cfg.Smoothness > 100 {
		cfg.Smoothness = 50
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
