// Package config loads the immutable per-process configuration
// described in spec.md §3, applying the conf-new.toml / conf.toml /
// conf-fallback.toml precedence rules.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CANPort is one configured CAN bus.
type CANPort struct {
	Name       string `toml:"name"`
	Bitrate    int    `toml:"bitrate"`
	ListenOnly *bool  `toml:"listen_only"`
}

// CANConfig is the optional CAN block.
type CANConfig struct {
	Ports   []CANPort `toml:"ports"`
	DBCFile string    `toml:"dbc_file"`
}

// DigitalInPort is one configured digital input line.
type DigitalInPort struct {
	InternalName string `toml:"internal_name"`
	ExternalName string `toml:"external_name"`
}

// DigitalInConfig is the optional digital-in block.
type DigitalInConfig struct {
	Ports []DigitalInPort `toml:"ports"`
}

// DigitalOutPort is one configured digital output line.
type DigitalOutPort struct {
	InternalName string `toml:"internal_name"`
	ExternalName string `toml:"external_name"`
	DefaultState int    `toml:"default_state"`
}

// DigitalOutConfig is the optional digital-out block.
type DigitalOutConfig struct {
	Ports []DigitalOutPort `toml:"ports"`
}

// Config is the parsed, immutable-for-process-lifetime configuration.
type Config struct {
	HeartbeatS  int              `toml:"heartbeat_s"`
	SleepMinS   int              `toml:"sleep_min_s"`
	SleepMaxS   int              `toml:"sleep_max_s"`
	CAN         *CANConfig       `toml:"can"`
	DigitalIn   *DigitalInConfig `toml:"digital_in"`
	DigitalOut  *DigitalOutConfig `toml:"digital_out"`

	// path is the file this Config was loaded from, used by Load's
	// caller to compute the MD5 digest reported in the start-up state.
	path string
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

const (
	fileNew      = "conf-new.toml"
	fileCurrent  = "conf.toml"
	fileFallback = "conf-fallback.toml"
)

// Load implements the loader precedence of spec.md §3: if conf-new.toml
// exists and parses, it is atomically renamed to conf.toml and used;
// otherwise conf.toml is used; otherwise conf-fallback.toml. An
// unparseable conf-new.toml is deleted rather than left behind.
func Load(confDir string) (*Config, error) {
	newPath := filepath.Join(confDir, fileNew)
	curPath := filepath.Join(confDir, fileCurrent)
	fallbackPath := filepath.Join(confDir, fileFallback)

	if _, err := os.Stat(newPath); err == nil {
		cfg, decodeErr := decode(newPath)
		if decodeErr != nil {
			if rmErr := os.Remove(newPath); rmErr != nil {
				return nil, fmt.Errorf("config: remove unparseable %s: %w", newPath, rmErr)
			}
		} else {
			if err := os.Rename(newPath, curPath); err != nil {
				return nil, fmt.Errorf("config: promote %s to %s: %w", newPath, curPath, err)
			}
			cfg.path = curPath
			return cfg, nil
		}
	}

	if cfg, err := decode(curPath); err == nil {
		cfg.path = curPath
		return cfg, nil
	}

	cfg, err := decode(fallbackPath)
	if err != nil {
		return nil, fmt.Errorf("config: no usable config in %s (tried %s, %s, %s): %w",
			confDir, fileNew, fileCurrent, fileFallback, err)
	}
	cfg.path = fallbackPath
	return cfg, nil
}

func decode(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
