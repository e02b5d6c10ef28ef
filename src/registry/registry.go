// Package registry abstracts the supported container registry backends behind
// a capability interface: GitHub Container Registry (token login through
// docker) and Google Artifact Registry (ambient gcloud credentials). The
// pipeline asks the backend what it needs — naming defaults, whether a secret
// is required, how to log in — instead of switching on provider names.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moorline/stevedore/src/run"
)

// Backend is the interface every registry backend implements.
type Backend interface {
	// Name returns the canonical backend name.
	Name() string

	// Host returns the registry hostname references are rooted at.
	Host() string

	// DefaultNamespace returns the namespace used when none is configured.
	DefaultNamespace() string

	// DefaultRepository returns the grouping segment used when none is
	// configured. Empty means the backend has no such segment.
	DefaultRepository() string

	// RequiresSecret reports whether push paths need a credential secret.
	RequiresSecret() bool

	// Login authenticates the docker daemon against this backend.
	// Backends with ambient credentials ignore both arguments.
	Login(ctx context.Context, namespace, secret string) error

	// ListTags returns remote tags for an image. Creation times are filled
	// where the backend API reports them.
	ListTags(ctx context.Context, namespace, repository, image string) ([]TagInfo, error)
}

// TagInfo describes a single tag in a container registry.
type TagInfo struct {
	Name      string
	Digest    string
	CreatedAt time.Time
}

// ErrTokenRequired aborts push paths on token backends before any subprocess
// is spawned.
var ErrTokenRequired = errors.New("ghcr: credential required for push: set STEVEDORE_TOKEN (or GITHUB_TOKEN) to a token with write:packages scope")

// Normalize maps backend aliases to their canonical names.
// Empty selects the default backend.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "github", "ghcr":
		return "ghcr"
	case "google", "artifact-registry", "gar":
		return "gar"
	default:
		return name
	}
}

// New creates a backend by name. The token is only meaningful for backends
// that require a secret; others ignore it.
func New(name string, r run.Runner, token string) (Backend, error) {
	switch Normalize(name) {
	case "ghcr":
		return NewGHCR(r, token), nil
	case "gar":
		return NewGAR(r), nil
	default:
		return nil, fmt.Errorf("registry: unsupported backend %q (valid: ghcr, gar)", name)
	}
}
