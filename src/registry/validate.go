package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validation regexes based on OCI Distribution Spec.
var (
	// OCI repository path: lowercase, digits, separators (-, _, ., /), max 256 chars.
	ociPathRe = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*(?:/[a-z0-9]+(?:[._-][a-z0-9]+)*)*$`)

	// OCI tag: alphanumeric, -, _, ., max 128 chars. Must start with alphanumeric.
	ociTagRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)
)

// ValidateRepoPath checks that a repository path below the registry host
// (namespace/repository/image, slash-joined) conforms to OCI spec.
func ValidateRepoPath(path string) error {
	if path == "" {
		return fmt.Errorf("repository path is empty")
	}
	if containsControlChars(path) {
		return fmt.Errorf("repository path %q contains control characters", path)
	}
	if len(path) > 256 {
		return fmt.Errorf("repository path %q exceeds 256 characters", path)
	}
	if !ociPathRe.MatchString(path) {
		return fmt.Errorf("repository path %q contains invalid characters (OCI spec: lowercase, digits, -, _, ., /)", path)
	}
	return nil
}

// ValidateTag checks that a resolved tag conforms to OCI spec.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag is empty")
	}
	if containsControlChars(tag) {
		return fmt.Errorf("tag %q contains control characters", tag)
	}
	if len(tag) > 128 {
		return fmt.Errorf("tag %q exceeds 128 characters", tag)
	}
	if !ociTagRe.MatchString(tag) {
		return fmt.Errorf("tag %q contains invalid characters (OCI spec: alphanumeric, -, _, .)", tag)
	}
	return nil
}

// ValidateTagTemplate checks that an unresolved tag template is structurally
// valid. Allows {var} and {var:param} syntax. Rejects unclosed braces,
// spaces, control chars.
func ValidateTagTemplate(tmpl string) error {
	if tmpl == "" {
		return fmt.Errorf("tag template is empty")
	}
	if containsControlChars(tmpl) {
		return fmt.Errorf("tag template %q contains control characters", tmpl)
	}
	if strings.ContainsAny(tmpl, " \t\n\r") {
		return fmt.Errorf("tag template %q contains whitespace", tmpl)
	}

	depth := 0
	for i, c := range tmpl {
		switch c {
		case '{':
			depth++
			if depth > 1 {
				return fmt.Errorf("tag template %q has nested braces at position %d", tmpl, i)
			}
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("tag template %q has unmatched closing brace at position %d", tmpl, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("tag template %q has unclosed brace", tmpl)
	}

	return nil
}

// containsControlChars returns true if the string has any ASCII control characters.
func containsControlChars(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
		if r == unicode.ReplacementChar {
			return true
		}
	}
	return false
}
