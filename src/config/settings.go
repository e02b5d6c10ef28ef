package config

import (
	"fmt"
	"os"
	"strings"
)

// Setting documents one environment variable the resolver reads.
type Setting struct {
	Env     string
	Default string
	Effect  string
}

// Settings lists every environment variable in the cascade, in the order
// the help output presents them.
var Settings = []Setting{
	{"STEVEDORE_REGISTRY", "ghcr", "registry backend (ghcr, gar)"},
	{"STEVEDORE_NAMESPACE", "", "image namespace (default is backend-specific)"},
	{"STEVEDORE_REPOSITORY", "", "grouping segment between namespace and image"},
	{"STEVEDORE_IMAGE", "app", "image name"},
	{"STEVEDORE_TAG", "latest", "image tag, templates allowed"},
	{"STEVEDORE_VERSION", "", "VERSION build-arg (default is the resolved tag)"},
	{"STEVEDORE_PLATFORMS", "linux/amd64,linux/arm64", "comma-separated build platforms"},
	{"STEVEDORE_TOKEN", "", "registry credential (fallback: GITHUB_TOKEN)"},
	{"STEVEDORE_BUILDER", "stevedore", "buildx builder name"},
}

// ApplyEnv overlays STEVEDORE_* environment variables onto cfg. Unset and
// empty variables leave the current value alone. The token falls back to
// GITHUB_TOKEN so CI jobs work without stevedore-specific wiring.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STEVEDORE_REGISTRY"); v != "" {
		c.Registry = v
	}
	if v := os.Getenv("STEVEDORE_NAMESPACE"); v != "" {
		c.Image.Namespace = v
	}
	if v := os.Getenv("STEVEDORE_REPOSITORY"); v != "" {
		c.Image.Repository = v
	}
	if v := os.Getenv("STEVEDORE_IMAGE"); v != "" {
		c.Image.Name = v
	}
	if v := os.Getenv("STEVEDORE_TAG"); v != "" {
		c.Image.Tag = v
	}
	if v := os.Getenv("STEVEDORE_VERSION"); v != "" {
		c.Image.Version = v
	}
	if v := os.Getenv("STEVEDORE_PLATFORMS"); v != "" {
		c.Build.Platforms = SplitPlatforms(v)
	}
	if v := os.Getenv("STEVEDORE_BUILDER"); v != "" {
		c.Build.Builder = v
	}
	if v := os.Getenv("STEVEDORE_TOKEN"); v != "" {
		c.Token = v
	} else if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.Token = v
	}
}

// SettingsHelp renders the settings table for command help output.
func SettingsHelp() string {
	width := 0
	for _, s := range Settings {
		if len(s.Env) > width {
			width = len(s.Env)
		}
	}

	var b strings.Builder
	for _, s := range Settings {
		def := s.Default
		if def == "" {
			def = "-"
		}
		fmt.Fprintf(&b, "  %-*s  %-25s %s\n", width, s.Env, def, s.Effect)
	}
	return strings.TrimRight(b.String(), "\n")
}
