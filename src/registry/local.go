package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/moorline/stevedore/src/run"
)

// Local lists image tags present in the local docker daemon. It is a lister,
// not a Backend: there is nothing to log in to and no remote API.
type Local struct {
	runner run.Runner
}

func NewLocal(r run.Runner) *Local {
	return &Local{runner: r}
}

// ListTags returns the daemon's tags for repo, an image reference without
// the tag suffix.
func (l *Local) ListTags(ctx context.Context, repo string) ([]TagInfo, error) {
	cmd := run.Command{
		Name: "docker",
		Args: []string{"images",
			"--format", `{"repository":"{{.Repository}}","tag":"{{.Tag}}","id":"{{.ID}}","created":"{{.CreatedAt}}"}`,
			"--filter", fmt.Sprintf("reference=%s", repo),
			"--no-trunc",
		},
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := l.runner.Run(ctx, cmd); err != nil {
		return nil, fmt.Errorf("local: docker images: %w: %s", err, stderr.String())
	}

	var tags []TagInfo
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if line == "" {
			continue
		}

		var img struct {
			Repository string `json:"repository"`
			Tag        string `json:"tag"`
			ID         string `json:"id"`
			Created    string `json:"created"`
		}
		if err := json.Unmarshal([]byte(line), &img); err != nil {
			continue
		}

		// Dangling layers show up as <none>.
		if img.Tag == "<none>" {
			continue
		}

		tags = append(tags, TagInfo{
			Name:      img.Tag,
			Digest:    img.ID,
			CreatedAt: parseDockerTimestamp(img.Created),
		})
	}

	return tags, nil
}

// parseDockerTimestamp parses the timestamp formats docker images outputs,
// which vary by version and platform.
func parseDockerTimestamp(s string) time.Time {
	formats := []string{
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 +0000 UTC",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, strings.TrimSpace(s)); err == nil {
			return t
		}
	}
	return time.Time{}
}
