package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/moorline/stevedore/src/build"
	"github.com/moorline/stevedore/src/output"
	"github.com/spf13/cobra"
)

var bpSkipScan bool

var buildPushCmd = &cobra.Command{
	Use:   "build-push [context]",
	Short: "Build multi-platform images and push them to the registry",
	Long: `Run the full pipeline: leak-scan the build context, ensure the buildx
builder, authenticate against the registry, then build the full platform
set and push in a single buildx invocation.

On ghcr a token must be configured; the pipeline aborts before touching
the network when it is missing. On gar the ambient gcloud credentials
are used and no token is involved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuildPush,
}

func init() {
	addTargetFlags(buildPushCmd)
	addBuildFlags(buildPushCmd)
	addTokenFlag(buildPushCmd)
	buildPushCmd.Flags().BoolVar(&bpSkipScan, "skip-scan", false, "skip the pre-push leak scan")
	rootCmd.AddCommand(buildPushCmd)
}

func runBuildPush(cmd *cobra.Command, args []string) error {
	t, be, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ci := output.IsCI()
	color := output.UseColor()
	w := os.Stdout

	bx, raw := newCaptureBuildx()
	p := build.NewPipeline(t, be, bx, cfg.Build)

	scanRan := false
	scanSummary := "--skip-scan"
	if !cfg.Scan.IsEnabled() {
		scanSummary = "disabled in config"
	}
	if cfg.Scan.IsEnabled() && !bpSkipScan {
		scanRan = true
		p.Gate = func(ctx context.Context) error {
			summary, gateErr := runScanSection(ctx, w, cfg.Build.Context, ci, color)
			scanSummary = summary
			return gateErr
		}
	}

	if flagDryRun {
		printPlan(p, build.ModeBuildPush)
		return nil
	}

	output.ContextBlock(w, []output.KV{
		{Key: "Registry", Value: be.Name()},
		{Key: "Image", Value: t.RepoPath()},
		{Key: "Platforms", Value: strings.Join(t.Platforms, ",")},
		{Key: "Version", Value: t.Version},
	})

	pipelineStart := time.Now()
	runErr := p.Run(ctx, build.ModeBuildPush)
	elapsed := time.Since(pipelineStart)

	output.Fold(w, "sd_push", "Build + Push")
	sec := output.NewSection(w, "Build + Push", elapsed, color)
	refs := t.References()
	for _, ref := range refs {
		sec.Row("%-52s %s", ref, pushIcon(runErr, color))
	}
	if runErr != nil {
		sec.RowStatus("status", "pipeline aborted", "failed")
		sec.Close()
		output.FoldEnd(w, "sd_push")
		flushRawOutput(w, raw)
		return runErr
	}
	sec.RowStatus("status", fmt.Sprintf("pushed to %s", t.Host), "success")
	sec.Close()
	output.FoldEnd(w, "sd_push")

	// Summary
	sumSec := output.NewSection(w, "Summary", 0, color)
	scanStatus := "success"
	if !scanRan {
		scanStatus = "skipped"
	}
	output.SummaryRow(w, "scan", scanStatus, scanSummary, color)
	output.SummaryRow(w, "build", "success", fmt.Sprintf("%d platform(s)", len(t.Platforms)), color)
	output.SummaryRow(w, "push", "success", fmt.Sprintf("%d reference(s) → %s", len(refs), t.Host), color)
	sumSec.Separator()
	output.SummaryTotal(w, elapsed, "success", color)
	sumSec.Close()

	output.References(w, refs)
	return nil
}

func pushIcon(err error, color bool) string {
	if err != nil {
		return output.StatusIcon("failed", color)
	}
	return output.StatusIcon("success", color)
}
