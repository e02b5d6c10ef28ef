package cmd

import (
	"fmt"
	"strings"

	"github.com/moorline/stevedore/src/build"
	"github.com/moorline/stevedore/src/config"
	"github.com/moorline/stevedore/src/registry"
	"github.com/spf13/cobra"
)

// Flag values shared by the target-resolving commands. Only one command
// runs per invocation, so sharing the variables is safe.
var (
	flagRegistry   string
	flagNamespace  string
	flagRepository string
	flagImage      string
	flagTag        string
	flagVersion    string
	flagPlatforms  string
	flagBuilder    string
	flagDockerfile string
	flagToken      string
	flagRolling    bool
	flagDryRun     bool
)

// addTargetFlags registers the naming flags shared by every command that
// resolves a target.
func addTargetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagRegistry, "registry", "", "registry backend: ghcr or gar")
	f.StringVar(&flagNamespace, "namespace", "", "image namespace (ghcr owner / gar project)")
	f.StringVar(&flagRepository, "repository", "", "grouping segment between namespace and image")
	f.StringVar(&flagImage, "image", "", "image name")
	f.StringVar(&flagTag, "tag", "", "image tag, templates allowed (e.g. v{version}, {branch}-{sha})")
	f.StringVar(&flagVersion, "version", "", "VERSION build argument (default: resolved tag)")
	f.BoolVar(&flagRolling, "rolling", false, "also address rolling aliases (vMAJOR.MINOR, vMAJOR, latest)")
}

// addBuildFlags registers flags for commands that invoke buildx.
func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagPlatforms, "platforms", "", "comma-separated build platforms")
	f.StringVar(&flagBuilder, "builder", "", "buildx builder name")
	f.StringVarP(&flagDockerfile, "file", "f", "", "Dockerfile path")
	f.BoolVar(&flagDryRun, "dry-run", false, "show the plan without executing")
}

// addTokenFlag registers the credential flag for auth-capable commands.
func addTokenFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagToken, "token", "", "registry token for ghcr push paths")
}

// overrides collects the flag layer of the configuration cascade.
func overrides(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		Registry:   flagRegistry,
		Namespace:  flagNamespace,
		Repository: flagRepository,
		Image:      flagImage,
		Tag:        flagTag,
		Version:    flagVersion,
		Platforms:  flagPlatforms,
		Builder:    flagBuilder,
		Dockerfile: flagDockerfile,
		Token:      flagToken,
	}
	if cmd.Flags().Changed("rolling") {
		o.Rolling = &flagRolling
	}
	return o
}

// resolveTarget applies the flag layer and resolves the build target. An
// optional positional argument overrides the build context directory.
func resolveTarget(cmd *cobra.Command, args []string) (*config.Target, registry.Backend, error) {
	o := overrides(cmd)
	if len(args) > 0 {
		o.Context = args[0]
	}
	cfg.Apply(o)

	be, err := registry.New(cfg.Registry, runner, cfg.Token)
	if err != nil {
		return nil, nil, err
	}
	t, err := config.Resolve(cfg, be)
	if err != nil {
		return nil, nil, err
	}
	return t, be, nil
}

// printPlan renders the would-be buildx invocation for --dry-run.
func printPlan(p *build.Pipeline, mode build.Mode) {
	step := p.Step(mode)
	if step.Dockerfile != "" {
		fmt.Printf("  dockerfile: %s\n", step.Dockerfile)
	}
	fmt.Printf("  context:    %s\n", step.Context)
	if len(step.Platforms) > 0 {
		fmt.Printf("  platforms:  %s\n", strings.Join(step.Platforms, ","))
	}
	fmt.Printf("  tags:       %s\n", strings.Join(step.Tags, ", "))
	fmt.Printf("  build_args: %v\n", step.BuildArgs)
	fmt.Printf("  load:       %v\n", step.Load)
	fmt.Printf("  push:       %v\n", step.Push)
}
