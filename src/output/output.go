// Package output renders stevedore's terminal output: box-drawing sections,
// status icons, findings listings, and CI-specific plumbing (collapsible fold
// markers, JUnit reports). Color is resolved once per run from the terminal
// and environment.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/moorline/stevedore/src/scan"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

// StatusIcon returns a status icon, colored when enabled.
func StatusIcon(status string, color bool) string {
	if !color {
		switch status {
		case "success":
			return "✓"
		case "failed":
			return "✗"
		default:
			return "⊘"
		}
	}
	switch status {
	case "success":
		return colorGreen + "✓" + colorReset
	case "failed":
		return colorRed + "✗" + colorReset
	default:
		return colorYellow + "⊘" + colorReset
	}
}

// Dimmed returns dimmed text if color is enabled.
func Dimmed(text string, color bool) string {
	if !color {
		return text
	}
	return colorGray + text + colorReset
}

// Bold returns bold text if color is enabled.
func Bold(text string, color bool) string {
	if !color {
		return text
	}
	return colorBold + text + colorReset
}

// ScanSummaryLine returns a one-line leak scan summary, optionally colored.
func ScanSummaryLine(findings, files int, color bool) string {
	if findings == 0 {
		return fmt.Sprintf("no leaks in %d files", files)
	}
	count := fmt.Sprintf("%d potential leak(s)", findings)
	if color {
		count = colorRed + count + colorReset
	}
	return fmt.Sprintf("%s in %d files", count, files)
}

// SectionFindings renders leak findings grouped by file inside a section.
// Files are sorted lexicographically; findings within each file by line.
func SectionFindings(sec *Section, findings []scan.Finding, color bool) {
	if len(findings) == 0 {
		return
	}

	byFile := map[string][]scan.Finding{}
	for _, f := range findings {
		byFile[f.Path] = append(byFile[f.Path], f)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	sec.Row("")

	for _, file := range files {
		ff := byFile[file]
		sort.Slice(ff, func(i, j int) bool {
			if ff[i].Line != ff[j].Line {
				return ff[i].Line < ff[j].Line
			}
			return ff[i].RuleID < ff[j].RuleID
		})

		sec.Row("%s", Bold(file, color))
		for _, f := range ff {
			sec.Row("  %-6d %-24s %s", f.Line, f.RuleID, f.Description)
		}
		sec.Row("")
	}
}

// References prints the final image reference block after a successful run.
func References(w io.Writer, refs []string) {
	fmt.Fprintf(w, "\n    Image References\n")
	for _, ref := range refs {
		fmt.Fprintf(w, "    → %s\n", ref)
	}
	fmt.Fprintln(w)
}
