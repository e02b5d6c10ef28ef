package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlatformList is a list of target platforms. In YAML it accepts either a
// sequence or a comma-separated scalar:
//
//	platforms: linux/amd64,linux/arm64
//
//	platforms:
//	  - linux/amd64
//	  - linux/arm64
type PlatformList []string

// UnmarshalYAML implements the scalar-or-sequence form.
func (p *PlatformList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*p = SplitPlatforms(value.Value)
		return nil
	}
	if value.Kind == yaml.SequenceNode {
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("platforms: %w", err)
		}
		*p = NormalizePlatforms(list)
		return nil
	}
	return fmt.Errorf("platforms: expected string or sequence, got YAML kind %d", value.Kind)
}

// String renders the list the way docker buildx expects it.
func (p PlatformList) String() string {
	return strings.Join(p, ",")
}

// SplitPlatforms parses a comma-separated platform string.
func SplitPlatforms(s string) PlatformList {
	return NormalizePlatforms(strings.Split(s, ","))
}

// NormalizePlatforms trims whitespace and drops empty entries and
// duplicates, preserving first-seen order.
func NormalizePlatforms(in []string) PlatformList {
	seen := make(map[string]bool, len(in))
	var out PlatformList
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
