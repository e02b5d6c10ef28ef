package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/moorline/stevedore/src/run"
)

const (
	garHost              = "us-docker.pkg.dev"
	garDefaultProject    = "moorline-infra"
	garDefaultRepository = "containers"
)

// GAR is the Google Artifact Registry backend. Credentials are ambient:
// gcloud wires a credential helper into the docker config, so no secret is
// handled here at all.
type GAR struct {
	runner run.Runner
	host   string
	api    httpClient
}

// NewGAR creates the gar backend rooted at the us multi-region host.
func NewGAR(r run.Runner) *GAR {
	return &GAR{
		runner: r,
		host:   garHost,
		api:    httpClient{base: "https://" + garHost},
	}
}

func (g *GAR) Name() string { return "gar" }

func (g *GAR) Host() string { return g.host }

func (g *GAR) DefaultNamespace() string { return garDefaultProject }

func (g *GAR) DefaultRepository() string { return garDefaultRepository }

func (g *GAR) RequiresSecret() bool { return false }

// Login registers gcloud as a docker credential helper for the registry
// host. Both arguments are ignored; the gcloud account on the machine is
// the identity.
func (g *GAR) Login(ctx context.Context, _, _ string) error {
	var stderr bytes.Buffer
	cmd := run.Command{
		Name:   "gcloud",
		Args:   []string{"auth", "configure-docker", g.host, "--quiet"},
		Stdout: io.Discard,
		Stderr: &stderr,
	}
	if err := g.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("gar: configure-docker: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// garTagList is the Docker Registry v2 tag list response. Artifact Registry
// additionally reports per-digest upload times in the manifest map.
type garTagList struct {
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	Manifest map[string]struct {
		Tag            []string `json:"tag"`
		TimeUploadedMs string   `json:"timeUploadedMs"`
	} `json:"manifest"`
}

// ListTags queries the registry's v2 tag list with a short-lived access
// token minted by gcloud.
func (g *GAR) ListTags(ctx context.Context, project, repository, image string) ([]TagInfo, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	path := project + "/" + image
	if repository != "" {
		path = project + "/" + repository + "/" + image
	}

	api := httpClient{
		base:    g.api.base,
		headers: map[string]string{"Authorization": "Bearer " + token},
	}
	var payload garTagList
	u := fmt.Sprintf("%s/v2/%s/tags/list", g.api.base, path)
	if _, err := api.doJSON(ctx, "GET", u, nil, &payload); err != nil {
		return nil, fmt.Errorf("gar: listing tags for %s: %w", path, err)
	}

	// Index tag -> (digest, upload time) from the manifest map when present.
	type manifestInfo struct {
		digest  string
		created time.Time
	}
	byTag := make(map[string]manifestInfo)
	for digest, m := range payload.Manifest {
		var created time.Time
		if ms, err := strconv.ParseInt(m.TimeUploadedMs, 10, 64); err == nil {
			created = time.UnixMilli(ms).UTC()
		}
		for _, tag := range m.Tag {
			byTag[tag] = manifestInfo{digest: digest, created: created}
		}
	}

	tags := make([]TagInfo, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		info := TagInfo{Name: tag}
		if m, ok := byTag[tag]; ok {
			info.Digest = m.digest
			info.CreatedAt = m.created
		}
		tags = append(tags, info)
	}
	return tags, nil
}

// accessToken mints a short-lived bearer token for the registry API.
func (g *GAR) accessToken(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := run.Command{
		Name:   "gcloud",
		Args:   []string{"auth", "print-access-token"},
		Stdout: &stdout,
		Stderr: &stderr,
	}
	if err := g.runner.Run(ctx, cmd); err != nil {
		return "", fmt.Errorf("gar: print-access-token: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	token := strings.TrimSpace(stdout.String())
	if token == "" {
		return "", fmt.Errorf("gar: print-access-token returned an empty token")
	}
	return token, nil
}
