package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/moorline/stevedore/src/gitver"
	"github.com/moorline/stevedore/src/run"
)

const ghcrHost = "ghcr.io"

const ghcrPageSize = 100

// ghcrFallbackNamespace is used when the working tree has no usable origin
// remote to derive an owner from.
const ghcrFallbackNamespace = "moorline"

// GHCR is the GitHub Container Registry backend. Push auth is a token fed to
// docker login over stdin; tag listing goes through the GitHub packages API.
type GHCR struct {
	runner run.Runner
	token  string
	api    httpClient
}

// NewGHCR creates the ghcr backend. An empty token is allowed; operations
// that need one fail with ErrTokenRequired when they run.
func NewGHCR(r run.Runner, token string) *GHCR {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &GHCR{
		runner: r,
		token:  token,
		api: httpClient{
			base:    "https://api.github.com",
			headers: headers,
		},
	}
}

func (g *GHCR) Name() string { return "ghcr" }

func (g *GHCR) Host() string { return ghcrHost }

// DefaultNamespace derives the namespace from the owner of the working
// tree's origin remote, falling back to the org default outside a
// repository.
func (g *GHCR) DefaultNamespace() string {
	owner, err := gitver.RepoOwner(".")
	if err != nil {
		return ghcrFallbackNamespace
	}
	return owner
}

func (g *GHCR) DefaultRepository() string { return "" }

func (g *GHCR) RequiresSecret() bool { return true }

// Login authenticates the docker daemon against ghcr.io. The secret travels
// over stdin, never argv.
func (g *GHCR) Login(ctx context.Context, namespace, secret string) error {
	if secret == "" {
		return ErrTokenRequired
	}
	var stderr bytes.Buffer
	cmd := run.Command{
		Name:   "docker",
		Args:   []string{"login", ghcrHost, "-u", namespace, "--password-stdin"},
		Stdin:  strings.NewReader(secret),
		Stdout: io.Discard,
		Stderr: &stderr,
	}
	if err := g.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("ghcr: docker login: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ghcrVersion is one package version from the GitHub packages API. A version
// is a digest; it can carry any number of tags.
type ghcrVersion struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  struct {
		Container struct {
			Tags []string `json:"tags"`
		} `json:"container"`
	} `json:"metadata"`
}

// ListTags lists container package versions for the image via the GitHub
// API. The namespace may be a user or an org; the user endpoint is tried
// first and the org endpoint is the fallback.
func (g *GHCR) ListTags(ctx context.Context, namespace, repository, image string) ([]TagInfo, error) {
	// On ghcr the grouping segment is part of the package name.
	pkg := image
	if repository != "" {
		pkg = repository + "/" + image
	}

	var tags []TagInfo
	scope := "users"
	for page := 1; ; page++ {
		versions, err := g.listVersions(ctx, scope, namespace, pkg, page)
		if err != nil && scope == "users" && page == 1 {
			scope = "orgs"
			versions, err = g.listVersions(ctx, scope, namespace, pkg, page)
		}
		if err != nil {
			return nil, fmt.Errorf("ghcr: listing versions for %s/%s: %w", namespace, pkg, err)
		}
		if len(versions) == 0 {
			break
		}
		for _, v := range versions {
			for _, tag := range v.Metadata.Container.Tags {
				tags = append(tags, TagInfo{
					Name:      tag,
					Digest:    v.Name,
					CreatedAt: v.CreatedAt,
				})
			}
		}
		if len(versions) < ghcrPageSize {
			break
		}
	}
	return tags, nil
}

func (g *GHCR) listVersions(ctx context.Context, scope, namespace, pkg string, page int) ([]ghcrVersion, error) {
	// Package names with a grouping segment are escaped, slash included.
	u := fmt.Sprintf("%s/%s/%s/packages/container/%s/versions?per_page=%d&page=%d",
		g.api.base, scope, url.PathEscape(namespace), url.PathEscape(pkg), ghcrPageSize, page)
	var versions []ghcrVersion
	if _, err := g.api.doJSON(ctx, "GET", u, nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}
