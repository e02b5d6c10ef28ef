package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moorline/stevedore/src/scan"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

func IsGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// Collapsible fold helpers. GitLab uses section_start/section_end markers,
// GitHub Actions uses ::group::. Outside CI these are no-ops.

func Fold(w io.Writer, id, name string) {
	switch {
	case IsGitLabCI():
		ts := time.Now().Unix()
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", ts, id, name)
	case IsGitHubActions():
		fmt.Fprintf(w, "::group::%s\n", name)
	}
}

func FoldEnd(w io.Writer, id string) {
	switch {
	case IsGitLabCI():
		ts := time.Now().Unix()
		fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", ts, id)
	case IsGitHubActions():
		fmt.Fprintf(w, "::endgroup::\n")
	}
}

// FoldCollapsed starts a fold that is collapsed by default.
// GitHub groups are always collapsed; GitLab needs the attribute.
func FoldCollapsed(w io.Writer, id, name string) {
	if IsGitLabCI() {
		ts := time.Now().Unix()
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s[collapsed=true]\r\033[0K%s\n", ts, id, name)
		return
	}
	Fold(w, id, name)
}

// JUnit XML types for CI test reporting.

type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// WriteScanJUnit writes leak scan results as JUnit XML for CI test reporting.
// Each file with findings becomes a failing test case; a clean scan emits a
// single passing case so the report is never empty.
func WriteScanJUnit(dir string, res *scan.Result, elapsed time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	byFile := make(map[string][]scan.Finding)
	for _, f := range res.Findings {
		byFile[f.Path] = append(byFile[f.Path], f)
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	suite := JUnitTestSuite{
		Name: "stevedore/scan",
		Time: fmt.Sprintf("%.3f", elapsed.Seconds()),
	}

	for _, file := range files {
		ff := byFile[file]
		var lines []string
		for _, f := range ff {
			lines = append(lines, fmt.Sprintf("  %d [%s] %s", f.Line, f.RuleID, f.Description))
		}
		suite.Cases = append(suite.Cases, JUnitTestCase{
			Name:      file,
			Classname: "stevedore.scan",
			Time:      "0.000",
			Failure: &JUnitFailure{
				Message: fmt.Sprintf("%d potential leak(s) in %s", len(ff), file),
				Type:    "leak",
				Body:    strings.Join(lines, "\n"),
			},
		})
		suite.Tests++
		suite.Failures++
	}

	if len(files) == 0 {
		suite.Cases = append(suite.Cases, JUnitTestCase{
			Name:      fmt.Sprintf("no leaks in %d files", res.FilesScanned),
			Classname: "stevedore.scan",
			Time:      "0.000",
		})
		suite.Tests++
	}

	root := JUnitTestSuites{
		Name:     "stevedore-scan",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Time:     fmt.Sprintf("%.3f", elapsed.Seconds()),
		Suites:   []JUnitTestSuite{suite},
	}

	path := filepath.Join(dir, "scan.xml")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	f.WriteString(xml.Header)
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding junit xml: %w", err)
	}
	f.WriteString("\n")

	return nil
}
