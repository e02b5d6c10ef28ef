// Package config resolves build settings from four layers, each overriding
// the one below: built-in defaults, the config file, STEVEDORE_* environment
// variables, and command-line flags. Nothing is validated until a command
// resolves a target, so a broken value in a field a command never reads
// cannot block it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile     = ".stevedore.yml"
	defaultConfigFileTOML = ".stevedore.toml"
)

// Config is the top-level stevedore configuration.
type Config struct {
	Registry string      `yaml:"registry" toml:"registry"`
	Image    ImageConfig `yaml:"image" toml:"image"`
	Build    BuildConfig `yaml:"build" toml:"build"`
	Scan     ScanConfig  `yaml:"scan" toml:"scan"`

	// Token is a credential and never comes from the config file. It is
	// filled from the environment or the --token flag.
	Token string `yaml:"-" toml:"-"`
}

// ImageConfig names the image being built.
type ImageConfig struct {
	Namespace  string `yaml:"namespace" toml:"namespace"`
	Repository string `yaml:"repository" toml:"repository"`
	Name       string `yaml:"name" toml:"name"`
	Tag        string `yaml:"tag" toml:"tag"`
	Version    string `yaml:"version" toml:"version"`
	Rolling    bool   `yaml:"rolling" toml:"rolling"`
}

// BuildConfig holds docker build settings.
type BuildConfig struct {
	Context    string            `yaml:"context" toml:"context"`
	Dockerfile string            `yaml:"dockerfile" toml:"dockerfile"`
	Builder    string            `yaml:"builder" toml:"builder"`
	Platforms  PlatformList      `yaml:"platforms" toml:"platforms"`
	Args       map[string]string `yaml:"args" toml:"args"`
}

// ScanConfig controls the pre-build secret scan.
type ScanConfig struct {
	Enabled *bool    `yaml:"enabled" toml:"enabled"`
	Exclude []string `yaml:"exclude" toml:"exclude"`
}

// IsEnabled reports whether the scan gate runs. Unset means enabled.
func (s ScanConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Load reads configuration from a YAML or TOML file, chosen by extension.
// If path is empty, it tries the default YAML file and then the default
// TOML file. A missing file yields defaults, not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if _, err := os.Stat(defaultConfigFileTOML); err == nil {
				path = defaultConfigFileTOML
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}

	cfg := defaults()
	if strings.HasSuffix(path, ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Registry: "ghcr",
		Image: ImageConfig{
			Name: "app",
			Tag:  "latest",
		},
		Build: BuildConfig{
			Context:   ".",
			Builder:   "stevedore",
			Platforms: PlatformList{"linux/amd64", "linux/arm64"},
			Args:      map[string]string{},
		},
	}
}
