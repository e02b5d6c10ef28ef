package cmd

import (
	"context"
	"os"
	"time"

	"github.com/moorline/stevedore/src/build"
	"github.com/moorline/stevedore/src/output"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:     "clean",
	Aliases: []string{"remove"},
	Short:   "Remove the resolved image references from the local daemon",
	Long: `Remove the local copies of the resolved references with docker rmi.
Best-effort housekeeping: references that are already gone, or that the
daemon refuses to drop, are reported but never fail the command.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	addTargetFlags(cleanCmd)
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	t, be, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}

	// Removal warnings go straight to stderr; there is no engine noise
	// worth capturing for rmi.
	bx := build.NewBuildx(runner, verbose)
	p := build.NewPipeline(t, be, bx, cfg.Build)

	w := os.Stdout
	color := output.UseColor()
	refs := t.References()

	start := time.Now()
	runErr := p.Run(context.Background(), build.ModeClean)
	elapsed := time.Since(start)

	sec := output.NewSection(w, "Clean", elapsed, color)
	for _, ref := range refs {
		sec.Row("%-52s %s", ref, output.StatusIcon("success", color))
	}
	sec.RowStatus("status", "local references removed (best effort)", "success")
	sec.Close()
	return runErr
}
