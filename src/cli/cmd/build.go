package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/moorline/stevedore/src/build"
	"github.com/moorline/stevedore/src/output"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [context]",
	Short: "Build an image for the current platform",
	Long: `Build the image with docker buildx for the current platform and load it
into the local daemon. The resolved version travels as the VERSION build
argument.

Multi-platform builds and pushing are separate commands: buildx and
build-push.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	addTargetFlags(buildCmd)
	addBuildFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	t, be, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}

	bx, raw := newCaptureBuildx()
	p := build.NewPipeline(t, be, bx, cfg.Build)

	if flagDryRun {
		printPlan(p, build.ModeBuild)
		return nil
	}

	ctx := context.Background()
	color := output.UseColor()
	w := os.Stdout

	output.Fold(w, "sd_build", "Build")
	start := time.Now()
	runErr := p.Run(ctx, build.ModeBuild)
	elapsed := time.Since(start)

	sec := output.NewSection(w, "Build", elapsed, color)
	sec.Row("%-12s%s", "image", t.Reference())
	sec.Row("%-12s%s", "platform", "current (daemon load)")
	sec.Row("%-12s%s", "version", t.Version)
	if runErr != nil {
		sec.RowStatus("status", "build failed", "failed")
		sec.Close()
		output.FoldEnd(w, "sd_build")
		flushRawOutput(w, raw)
		return runErr
	}
	sec.RowStatus("status", "loaded into daemon", "success")
	sec.Close()
	output.FoldEnd(w, "sd_build")

	output.References(w, t.References())
	return nil
}

// newCaptureBuildx creates a Buildx whose raw engine output is captured
// unless verbose mode streams it live.
func newCaptureBuildx() (*build.Buildx, *bytes.Buffer) {
	bx := build.NewBuildx(runner, verbose)
	raw := &bytes.Buffer{}
	bx.Stdout = io.Discard
	if verbose {
		bx.Stderr = os.Stderr
	} else {
		bx.Stderr = raw
	}
	return bx, raw
}

// flushRawOutput surfaces captured engine output after a failure:
// collapsed in CI, straight to stderr otherwise. Verbose runs already
// streamed it.
func flushRawOutput(w io.Writer, raw *bytes.Buffer) {
	if verbose || raw.Len() == 0 {
		return
	}
	if output.IsCI() {
		output.FoldCollapsed(w, "sd_raw", "Engine Output (raw)")
		fmt.Fprint(w, raw.String())
		output.FoldEnd(w, "sd_raw")
		return
	}
	fmt.Fprint(os.Stderr, raw.String())
}
