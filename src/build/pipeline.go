package build

import (
	"context"
	"fmt"

	"github.com/moorline/stevedore/src/config"
	"github.com/moorline/stevedore/src/registry"
)

// Mode selects what one pipeline run does.
type Mode int

const (
	// ModeBuild builds for the current platform and loads the image into
	// the local daemon.
	ModeBuild Mode = iota
	// ModeMultiBuild builds the full platform set without loading or
	// pushing, leaving the result in the builder cache.
	ModeMultiBuild
	// ModeBuildPush builds the full platform set and pushes, as a single
	// buildx invocation.
	ModeBuildPush
	// ModePush pushes already-built local images. Assumes prior login.
	ModePush
	// ModeClean removes local images. Best-effort: never fails the run.
	ModeClean
)

// Pipeline sequences one run against a resolved target. Stage order is
// fixed: credential precondition, pre-push gate, builder guard, registry
// login, then the docker invocation. A stage failure aborts the run;
// there are no retries.
type Pipeline struct {
	Target  *config.Target
	Backend registry.Backend
	Buildx  *Buildx

	Builder    string            // buildx builder name for multi-platform modes
	Context    string            // build context directory
	Dockerfile string            // optional --file override
	ExtraArgs  map[string]string // extra --build-arg pairs from config

	// Gate runs between the credential precondition and the first
	// subprocess. Build-push attaches the leak scan here; nil skips.
	Gate func(ctx context.Context) error

	builderEnsured bool
}

// NewPipeline wires a pipeline from a resolved target and build settings.
func NewPipeline(t *config.Target, be registry.Backend, bx *Buildx, bc config.BuildConfig) *Pipeline {
	return &Pipeline{
		Target:     t,
		Backend:    be,
		Buildx:     bx,
		Builder:    bc.Builder,
		Context:    bc.Context,
		Dockerfile: bc.Dockerfile,
		ExtraArgs:  bc.Args,
	}
}

// Run executes one mode against the target.
func (p *Pipeline) Run(ctx context.Context, mode Mode) error {
	if mode == ModeBuildPush {
		if err := p.checkSecret(); err != nil {
			return err
		}
		if p.Gate != nil {
			if err := p.Gate(ctx); err != nil {
				return err
			}
		}
	}

	switch mode {
	case ModeBuild:
		return p.Buildx.Build(ctx, p.Step(mode))

	case ModeMultiBuild:
		if err := p.ensureBuilder(ctx); err != nil {
			return err
		}
		return p.Buildx.Build(ctx, p.Step(mode))

	case ModeBuildPush:
		if err := p.ensureBuilder(ctx); err != nil {
			return err
		}
		if err := p.Backend.Login(ctx, p.Target.Namespace, p.Target.Secret); err != nil {
			return err
		}
		return p.Buildx.Build(ctx, p.Step(mode))

	case ModePush:
		return p.Buildx.Push(ctx, p.Target.References())

	case ModeClean:
		for _, ref := range p.Target.References() {
			if err := p.Buildx.Remove(ctx, ref); err != nil {
				fmt.Fprintf(p.Buildx.Stderr, "warning: %v\n", err)
			}
		}
		return nil

	default:
		return fmt.Errorf("build: unknown pipeline mode %d", mode)
	}
}

// Step assembles the buildx step for a build mode. The resolved version
// always travels as the VERSION build argument unless the configuration
// sets an explicit override.
func (p *Pipeline) Step(mode Mode) Step {
	args := make(map[string]string, len(p.ExtraArgs)+1)
	for k, v := range p.ExtraArgs {
		args[k] = v
	}
	if _, ok := args["VERSION"]; !ok {
		args["VERSION"] = p.Target.Version
	}

	s := Step{
		Dockerfile: p.Dockerfile,
		Context:    p.Context,
		BuildArgs:  args,
		Tags:       p.Target.References(),
	}

	switch mode {
	case ModeBuild:
		// Current platform only; buildx picks it when none is given.
		s.Load = true
	case ModeMultiBuild:
		s.Platforms = p.Target.Platforms
	case ModeBuildPush:
		s.Platforms = p.Target.Platforms
		s.Push = true
	}
	return s
}

// checkSecret enforces the credential precondition before any subprocess
// or network call.
func (p *Pipeline) checkSecret() error {
	if p.Backend.RequiresSecret() && p.Target.Secret == "" {
		return registry.ErrTokenRequired
	}
	return nil
}

// ensureBuilder runs the builder guard at most once per pipeline.
func (p *Pipeline) ensureBuilder(ctx context.Context) error {
	if p.builderEnsured {
		return nil
	}
	if _, err := p.Buildx.EnsureBuilder(ctx, p.Builder); err != nil {
		return err
	}
	p.builderEnsured = true
	return nil
}
