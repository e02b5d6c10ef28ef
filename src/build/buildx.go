// Package build wraps docker buildx and sequences the build-and-publish
// pipeline: builder guard, registry login, then a single buildx invocation
// per run. Every external call goes through a run.Runner so the whole
// pipeline is testable without docker installed.
package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/moorline/stevedore/src/run"
)

// Step describes one docker buildx build invocation.
type Step struct {
	Dockerfile string
	Context    string
	Platforms  []string
	BuildArgs  map[string]string
	Tags       []string
	Push       bool
	Load       bool
}

// Buildx wraps docker buildx commands.
type Buildx struct {
	Runner  run.Runner
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewBuildx creates a Buildx wrapper with default output writers.
func NewBuildx(r run.Runner, verbose bool) *Buildx {
	return &Buildx{
		Runner:  r,
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Build executes a single build step via docker buildx.
func (bx *Buildx) Build(ctx context.Context, step Step) error {
	cmd := run.Command{
		Name:   "docker",
		Args:   buildArgs(step),
		Stdout: bx.Stdout,
		Stderr: bx.Stderr,
	}
	if err := bx.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("docker buildx build: %w", err)
	}
	return nil
}

// buildArgs constructs the docker buildx build argument list. Build args
// are emitted in sorted key order so the argv is stable.
func buildArgs(step Step) []string {
	args := []string{"buildx", "build"}

	if step.Dockerfile != "" {
		args = append(args, "--file", step.Dockerfile)
	}

	if len(step.Platforms) > 0 {
		args = append(args, "--platform", strings.Join(step.Platforms, ","))
	}

	keys := make([]string, 0, len(step.BuildArgs))
	for k := range step.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, step.BuildArgs[k]))
	}

	for _, tag := range step.Tags {
		args = append(args, "--tag", tag)
	}

	// Output mode. A multi-platform image cannot be loaded into the
	// daemon, so push and load are mutually exclusive upstream.
	switch {
	case step.Push:
		args = append(args, "--push")
	case step.Load:
		args = append(args, "--load")
	}

	buildContext := step.Context
	if buildContext == "" {
		buildContext = "."
	}
	args = append(args, buildContext)

	return args
}

// Push pushes already-built local images, one docker push per reference.
func (bx *Buildx) Push(ctx context.Context, refs []string) error {
	for _, ref := range refs {
		cmd := run.Command{
			Name:   "docker",
			Args:   []string{"push", ref},
			Stdout: bx.Stdout,
			Stderr: bx.Stderr,
		}
		if err := bx.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("docker push %s: %w", ref, err)
		}
	}
	return nil
}

// Remove deletes a local image. A reference that is not present in the
// daemon is not an error; anything else is.
func (bx *Buildx) Remove(ctx context.Context, ref string) error {
	var stderr bytes.Buffer
	cmd := run.Command{
		Name:   "docker",
		Args:   []string{"rmi", ref},
		Stdout: io.Discard,
		Stderr: &stderr,
	}
	if err := bx.Runner.Run(ctx, cmd); err != nil {
		if strings.Contains(stderr.String(), "No such image") {
			return nil
		}
		return fmt.Errorf("docker rmi %s: %w: %s", ref, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
