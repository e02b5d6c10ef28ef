package gitver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// RollingTags derives rolling alias tags for a release tag: "v1.2.3" yields
// ["v1.2", "v1", "latest"]. The v prefix is preserved from the input.
// Prerelease, build-metadata, and non-semver tags yield nil — rolling aliases
// never move to anything but a clean release.
func RollingTags(tag string) []string {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(tag, "v"))
	if err != nil {
		return nil
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return nil
	}

	prefix := ""
	if strings.HasPrefix(tag, "v") {
		prefix = "v"
	}

	return []string{
		fmt.Sprintf("%s%d.%d", prefix, v.Major(), v.Minor()),
		fmt.Sprintf("%s%d", prefix, v.Major()),
		"latest",
	}
}
