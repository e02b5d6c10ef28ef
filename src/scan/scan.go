// Package scan checks a build context for leaked credentials before anything
// is pushed. It walks the context directory and runs the gitleaks default
// ruleset over every regular file, bounded by a worker semaphore.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
	"golang.org/x/sync/semaphore"
)

// maxFileSize caps what gets scanned; larger blobs are almost never source.
const maxFileSize = 1 << 20

// Finding is a single potential credential leak.
type Finding struct {
	Path        string
	Line        int
	RuleID      string
	Description string
}

// Result holds the outcome of one scan pass.
type Result struct {
	Findings     []Finding
	FilesScanned int
}

// Scanner runs leak detection over a directory tree.
type Scanner struct {
	Exclude []string
	Verbose bool

	detector *detect.Detector
}

// NewScanner creates a scanner with the gitleaks default ruleset.
func NewScanner(exclude []string, verbose bool) (*Scanner, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("scan: loading detector rules: %w", err)
	}
	return &Scanner{
		Exclude:  exclude,
		Verbose:  verbose,
		detector: d,
	}, nil
}

type scanFile struct {
	rel string
	abs string
}

// Run scans all regular files under rootDir and returns sorted findings.
func (s *Scanner) Run(ctx context.Context, rootDir string) (*Result, error) {
	files, err := s.collectFiles(rootDir)
	if err != nil {
		return nil, fmt.Errorf("scan: collecting files: %w", err)
	}

	var (
		mu       sync.Mutex
		findings []Finding
		errs     []error
		wg       sync.WaitGroup
	)

	sem := semaphore.NewWeighted(int64(runtime.NumCPU() * 2))

	for _, file := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(f scanFile) {
			defer wg.Done()
			defer sem.Release(1)

			data, err := os.ReadFile(f.abs)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", f.rel, err))
				mu.Unlock()
				return
			}

			hits := s.detector.DetectBytes(data)
			if len(hits) == 0 {
				return
			}

			mu.Lock()
			for _, h := range hits {
				findings = append(findings, Finding{
					Path:        f.rel,
					Line:        h.StartLine + 1, // gitleaks is 0-indexed
					RuleID:      h.RuleID,
					Description: h.Description,
				})
			}
			mu.Unlock()
		}(file)
	}

	wg.Wait()

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})

	res := &Result{Findings: findings, FilesScanned: len(files)}
	if len(errs) > 0 {
		return res, fmt.Errorf("scan: %d file error(s) (first: %w)", len(errs), errs[0])
	}
	return res, nil
}

// collectFiles walks rootDir and returns all scannable regular files.
// Hidden directories (including .git) are skipped entirely.
func (s *Scanner) collectFiles(rootDir string) ([]scanFile, error) {
	var files []scanFile

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			base := filepath.Base(rel)
			if strings.HasPrefix(base, ".") && base != "." {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if s.isExcluded(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxFileSize {
			return nil
		}

		files = append(files, scanFile{rel: rel, abs: path})
		return nil
	})

	return files, err
}

// isExcluded matches exclude patterns against a path. Patterns containing "/"
// match the full slash-normalized path; others match the base name only.
func (s *Scanner) isExcluded(path string) bool {
	if len(s.Exclude) == 0 {
		return false
	}
	normPath := filepath.ToSlash(path)
	baseName := filepath.Base(normPath)
	for _, pattern := range s.Exclude {
		pattern = filepath.ToSlash(pattern)
		if strings.Contains(pattern, "/") {
			if ok, _ := filepath.Match(pattern, normPath); ok {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, baseName); ok {
			return true
		}
	}
	return false
}
