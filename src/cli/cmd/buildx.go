package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/moorline/stevedore/src/build"
	"github.com/moorline/stevedore/src/output"
	"github.com/spf13/cobra"
)

var buildxCmd = &cobra.Command{
	Use:     "buildx [context]",
	Aliases: []string{"multi-build"},
	Short:   "Build multi-platform images without pushing",
	Long: `Build the full platform set with docker buildx, without loading or
pushing. The named builder is created on first use; the images stay in
the builder cache, so this mainly verifies that every platform builds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuildx,
}

func init() {
	addTargetFlags(buildxCmd)
	addBuildFlags(buildxCmd)
	rootCmd.AddCommand(buildxCmd)
}

func runBuildx(cmd *cobra.Command, args []string) error {
	t, be, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}

	bx, raw := newCaptureBuildx()
	p := build.NewPipeline(t, be, bx, cfg.Build)

	if flagDryRun {
		printPlan(p, build.ModeMultiBuild)
		return nil
	}

	ctx := context.Background()
	color := output.UseColor()
	w := os.Stdout

	output.Fold(w, "sd_buildx", "Multi-Platform Build")
	start := time.Now()
	runErr := p.Run(ctx, build.ModeMultiBuild)
	elapsed := time.Since(start)

	sec := output.NewSection(w, "Multi-Platform Build", elapsed, color)
	sec.Row("%-12s%s", "image", t.Reference())
	sec.Row("%-12s%s", "platforms", strings.Join(t.Platforms, ","))
	sec.Row("%-12s%s", "builder", cfg.Build.Builder)
	sec.Row("%-12s%s", "version", t.Version)
	if runErr != nil {
		sec.RowStatus("status", "build failed", "failed")
		sec.Close()
		output.FoldEnd(w, "sd_buildx")
		flushRawOutput(w, raw)
		return runErr
	}
	sec.RowStatus("status", "all platforms built", "success")
	sec.Close()
	output.FoldEnd(w, "sd_buildx")
	return nil
}
