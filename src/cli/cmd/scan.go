package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/moorline/stevedore/src/output"
	"github.com/moorline/stevedore/src/scan"
	"github.com/spf13/cobra"
)

var scanExclude []string

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan the build context for leaked credentials",
	Long: `Scan the build context with the gitleaks ruleset before anything is
pushed. build-push runs the same scan as a gate; this command runs it
standalone. Exits non-zero when potential leaks are found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "glob patterns to skip (adds to config)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := cfg.Build.Context
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}
	cfg.Scan.Exclude = append(cfg.Scan.Exclude, scanExclude...)

	_, err := runScanSection(context.Background(), os.Stdout, dir, output.IsCI(), output.UseColor())
	return err
}

// runScanSection scans dir for leaked credentials and renders a folded
// section. Returns a one-line summary; a non-nil error means leaks were
// found or the scan itself failed. In CI the findings also land in a
// JUnit report under .stevedore/reports.
func runScanSection(ctx context.Context, w io.Writer, dir string, ci, color bool) (string, error) {
	output.Fold(w, "sd_scan", "Scan")
	start := time.Now()

	scanner, err := scan.NewScanner(cfg.Scan.Exclude, verbose)
	if err != nil {
		output.FoldEnd(w, "sd_scan")
		return "", err
	}

	res, runErr := scanner.Run(ctx, dir)
	elapsed := time.Since(start)
	if res == nil {
		output.FoldEnd(w, "sd_scan")
		return "", runErr
	}

	summary := output.ScanSummaryLine(len(res.Findings), res.FilesScanned, color)

	sec := output.NewSection(w, "Scan", elapsed, color)
	sec.Row("%-12s%s", "context", dir)
	if len(res.Findings) > 0 {
		output.SectionFindings(sec, res.Findings, color)
		sec.Separator()
		sec.Row("%s", summary)
	} else {
		sec.RowStatus("status", summary, "success")
	}
	sec.Close()

	if ci {
		if jErr := output.WriteScanJUnit(".stevedore/reports", res, elapsed); jErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write junit report: %v\n", jErr)
		}
	}
	output.FoldEnd(w, "sd_scan")

	if runErr != nil {
		return summary, runErr
	}
	if len(res.Findings) > 0 {
		return summary, fmt.Errorf("scan: %d potential leak(s) in %s", len(res.Findings), dir)
	}
	return summary, nil
}
