package config

import (
	"fmt"
	"strings"

	"github.com/moorline/stevedore/src/gitver"
	"github.com/moorline/stevedore/src/registry"
)

// Target is a fully resolved build target: every naming decision made,
// every template expanded, validated, ready to hand to the pipeline.
type Target struct {
	Registry   string
	Host       string
	Namespace  string
	Repository string
	Image      string
	Tag        string
	Version    string
	Platforms  []string
	Secret     string
	Rolling    bool
}

// Resolve applies backend naming defaults and tag templates to cfg and
// validates the result. This is where lazy validation happens: values are
// checked only once a command actually resolves a target.
func Resolve(cfg *Config, be registry.Backend) (*Target, error) {
	t := &Target{
		Registry:   be.Name(),
		Host:       be.Host(),
		Namespace:  cfg.Image.Namespace,
		Repository: cfg.Image.Repository,
		Image:      cfg.Image.Name,
		Tag:        cfg.Image.Tag,
		Version:    cfg.Image.Version,
		Platforms:  NormalizePlatforms(cfg.Build.Platforms),
		Secret:     cfg.Token,
		Rolling:    cfg.Image.Rolling,
	}
	if t.Namespace == "" {
		t.Namespace = be.DefaultNamespace()
	}
	if t.Repository == "" {
		t.Repository = be.DefaultRepository()
	}
	if t.Image == "" {
		t.Image = "app"
	}
	if t.Tag == "" {
		t.Tag = "latest"
	}

	if gitver.HasTemplates(t.Tag) {
		if err := registry.ValidateTagTemplate(t.Tag); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		// Date and env templates resolve even outside a repository; a
		// template that needs git metadata surfaces the detection error.
		vi, verr := gitver.DetectVersion(".")
		t.Tag = gitver.ResolveTemplate(t.Tag, vi)
		if gitver.HasTemplates(t.Tag) && verr != nil {
			return nil, fmt.Errorf("config: tag template needs git metadata: %w", verr)
		}
	}
	if t.Version == "" {
		t.Version = t.Tag
	}

	if err := registry.ValidateTag(t.Tag); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := registry.ValidateRepoPath(t.RepoPath()); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(t.Platforms) == 0 {
		return nil, fmt.Errorf("config: no build platforms configured")
	}
	return t, nil
}

// Reference builds a full image reference. The repository segment is
// elided when empty, so both backend shapes come out of one rule:
//
//	ghcr.io/moorline/app:v1.0.0
//	us-docker.pkg.dev/moorline-infra/containers/app:v1.0.0
func Reference(host, namespace, repository, image, tag string) string {
	segments := []string{host, namespace}
	if repository != "" {
		segments = append(segments, repository)
	}
	segments = append(segments, image)
	return strings.Join(segments, "/") + ":" + tag
}

// RepoPath returns the slash-joined path below the registry host.
func (t *Target) RepoPath() string {
	segments := []string{t.Namespace}
	if t.Repository != "" {
		segments = append(segments, t.Repository)
	}
	return strings.Join(append(segments, t.Image), "/")
}

// Reference returns the image reference for the resolved tag.
func (t *Target) Reference() string {
	return Reference(t.Host, t.Namespace, t.Repository, t.Image, t.Tag)
}

// References returns the primary reference plus rolling alias references
// when rolling tags are enabled and the tag is a clean release.
func (t *Target) References() []string {
	refs := []string{t.Reference()}
	if t.Rolling {
		for _, tag := range gitver.RollingTags(t.Tag) {
			refs = append(refs, Reference(t.Host, t.Namespace, t.Repository, t.Image, tag))
		}
	}
	return refs
}
