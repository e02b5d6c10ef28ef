package gitver

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ResolveTemplate expands template variables in a tag or version setting
// against version info and environment. Literals pass through untouched.
//
// Supported templates:
//
//	{version}     → "1.2.3" or "1.2.3-alpha.1" (full version)
//	{base}        → "1.2.3" (semver base, no prerelease)
//	{major}       → "1"
//	{minor}       → "2"
//	{patch}       → "3"
//	{prerelease}  → "alpha.1" or "" (empty for stable)
//	{branch}      → "main" (slashes and spaces become dashes)
//	{sha}         → "abc1234" (default 7)
//	{sha:N}       → first N chars of the commit SHA
//	{env:VAR}     → value of environment variable VAR
//	{date}        → "2026-08-24" (ISO date, UTC)
//	{datetime}    → "2026-08-24T15:04:05Z" (RFC3339)
//	{timestamp}   → "1756047845" (unix epoch)
//
// Templates compose freely: "{branch}-{sha:10}", "nightly-{date}".
//
// A nil VersionInfo resolves only the environment and time templates;
// git-dependent tokens pass through so callers can tell they are
// unresolvable.
func ResolveTemplate(tmpl string, v *VersionInfo) string {
	s := tmpl

	// {env:VAR} first — the colon collides with the simple replacements.
	s = resolveEnvVars(s)

	// {datetime} before {date}: the shorter token is a substring.
	now := time.Now().UTC()
	s = strings.ReplaceAll(s, "{datetime}", now.Format(time.RFC3339))
	s = strings.ReplaceAll(s, "{timestamp}", strconv.FormatInt(now.Unix(), 10))
	s = strings.ReplaceAll(s, "{date}", now.Format("2006-01-02"))

	if v == nil {
		return s
	}

	s = resolveSHA(s, v.SHA)
	s = strings.ReplaceAll(s, "{version}", v.Version)
	s = strings.ReplaceAll(s, "{base}", v.Base)
	s = strings.ReplaceAll(s, "{major}", v.Major)
	s = strings.ReplaceAll(s, "{minor}", v.Minor)
	s = strings.ReplaceAll(s, "{patch}", v.Patch)
	s = strings.ReplaceAll(s, "{prerelease}", v.Prerelease)
	s = strings.ReplaceAll(s, "{branch}", sanitizeTag(v.Branch))
	s = strings.ReplaceAll(s, "{sha}", truncate(v.SHA, 7))

	return s
}

// HasTemplates reports whether a setting value contains template variables.
// Literal values skip version detection entirely.
func HasTemplates(s string) bool {
	return strings.Contains(s, "{")
}

// resolveEnvVars replaces all {env:VAR_NAME} with the env var value.
func resolveEnvVars(s string) string {
	for {
		start := strings.Index(s, "{env:")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			return s
		}
		end += start
		varName := s[start+5 : end]
		val := os.Getenv(varName)
		s = s[:start] + val + s[end+1:]
	}
}

// resolveSHA replaces {sha:N} with the SHA truncated to N chars.
// Plain {sha} is handled by the simple replacement pass.
func resolveSHA(s string, sha string) string {
	for {
		start := strings.Index(s, "{sha:")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			return s
		}
		end += start
		width, err := strconv.Atoi(s[start+5 : end])
		if err != nil || width <= 0 {
			width = 7
		}
		s = s[:start] + truncate(sha, width) + s[end+1:]
	}
}

// truncate returns the first n characters of s, or s if shorter.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// sanitizeTag replaces characters not allowed in image tags.
func sanitizeTag(s string) string {
	r := strings.NewReplacer(
		"/", "-",
		" ", "-",
	)
	return r.Replace(s)
}
