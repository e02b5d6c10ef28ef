package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/moorline/stevedore/src/build"
	"github.com/moorline/stevedore/src/output"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push already-built image references",
	Long: `Push the resolved image references from the local daemon to the
registry. Assumes the images exist locally and the daemon is already
authenticated; use 'login' or 'build-push' when it is not.`,
	Args: cobra.NoArgs,
	RunE: runPush,
}

func init() {
	addTargetFlags(pushCmd)
	pushCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show the references without pushing")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	t, be, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}

	bx, raw := newCaptureBuildx()
	p := build.NewPipeline(t, be, bx, cfg.Build)

	if flagDryRun {
		for _, ref := range t.References() {
			fmt.Fprintln(cmd.OutOrStdout(), ref)
		}
		return nil
	}

	w := os.Stdout
	color := output.UseColor()
	refs := t.References()

	output.Fold(w, "sd_push", "Push")
	start := time.Now()
	runErr := p.Run(context.Background(), build.ModePush)
	elapsed := time.Since(start)

	sec := output.NewSection(w, "Push", elapsed, color)
	for _, ref := range refs {
		sec.Row("%-52s %s", ref, pushIcon(runErr, color))
	}
	if runErr != nil {
		sec.Separator()
		sec.RowStatus("result", "push aborted", "failed")
	}
	sec.Close()
	output.FoldEnd(w, "sd_push")

	if runErr != nil {
		flushRawOutput(w, raw)
		return runErr
	}
	output.References(w, refs)
	return nil
}
