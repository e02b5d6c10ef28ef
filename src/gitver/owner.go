package gitver

import (
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// RepoOwner returns the owner (first path component) of the origin remote for
// the repository containing dir. The result is lowercased because image
// namespaces reject uppercase.
func RepoOwner(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("gitver: opening repository: %w", err)
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", fmt.Errorf("gitver: no origin remote: %w", err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("gitver: origin remote has no URL")
	}

	owner := ownerFromRemote(urls[0])
	if owner == "" {
		return "", fmt.Errorf("gitver: cannot derive owner from remote %q", urls[0])
	}
	return owner, nil
}

// ownerFromRemote extracts the owner from a git remote URL.
// Handles scp syntax (git@host:owner/repo.git) and URL syntax
// (https://host/owner/repo.git, ssh://git@host/owner/repo).
func ownerFromRemote(remote string) string {
	remote = strings.TrimSuffix(remote, ".git")

	if idx := strings.Index(remote, "://"); idx != -1 {
		// URL form: strip scheme and host
		rest := remote[idx+3:]
		slash := strings.Index(rest, "/")
		if slash == -1 {
			return ""
		}
		remote = rest[slash+1:]
	} else if idx := strings.LastIndex(remote, ":"); idx != -1 {
		// scp form: everything after the colon is the path
		remote = remote[idx+1:]
	}

	remote = strings.Trim(remote, "/")
	parts := strings.Split(remote, "/")
	if len(parts) < 2 || parts[0] == "" {
		return ""
	}
	return strings.ToLower(parts[0])
}
