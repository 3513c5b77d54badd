// Package config loads toolchain profiles from the user's TOML
// configuration file.
package config

import (
	"os"
	"path"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const dxbcConfigDirName = "dxbc"
const dxbcConfigFileName = "dxbc.toml"

// A Config is the on-disk tool configuration.
type Config struct {
	Profiles map[string]Profile `toml:"profiles"`
}

// Default returns the configuration used when no file exists: a single
// "default" profile that finds dxc on PATH.
func Default() *Config {
	return &Config{
		Profiles: map[string]Profile{
			"default": {
				CompilerPath:  "dxc",
				TargetProfile: "ps_6_0",
				EntryPoint:    "main",
			},
		},
	}
}

// LoadFile loads a configuration from an explicit path.
func LoadFile(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open configuration file")
	}
	defer file.Close()

	var cfg Config
	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode TOML config")
	}
	return &cfg, nil
}

func defaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get the user configuration directory")
	}
	return path.Join(configDir, dxbcConfigDirName, dxbcConfigFileName), nil
}

// LoadDefault loads the configuration from the default path. A missing
// file is not an error: the built-in defaults are returned so the tools
// work with zero setup.
func LoadDefault() (*Config, error) {
	configPath, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFile(configPath)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadProfileByName is a utility for loading a single profile from the
// default configuration.
func LoadProfileByName(profileName string) (*Profile, error) {
	cfg, err := LoadDefault()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read profile from configuration")
	}

	if profile, ok := cfg.Profiles[profileName]; ok {
		return &profile, nil
	}
	return nil, errors.Errorf("profile '%s' not found", profileName)
}
