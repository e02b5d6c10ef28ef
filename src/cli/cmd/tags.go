package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/moorline/stevedore/src/output"
	"github.com/moorline/stevedore/src/registry"
	"github.com/spf13/cobra"
)

var tagsLocal bool

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags for the resolved image",
	Long: `List the tags published for the resolved image, newest first. ghcr reads
the GitHub packages API (a token widens visibility to private images);
gar reads the Artifact Registry docker API through the configured
credential helper. --local lists the daemon's tags instead.`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func init() {
	addTargetFlags(tagsCmd)
	addTokenFlag(tagsCmd)
	tagsCmd.Flags().BoolVar(&tagsLocal, "local", false, "list tags from the local daemon instead of the registry")
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	t, be, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	var (
		tags   []registry.TagInfo
		source string
	)
	if tagsLocal {
		source = "local daemon"
		tags, err = registry.NewLocal(runner).ListTags(ctx, t.Host+"/"+t.RepoPath())
	} else {
		source = t.Host
		tags, err = be.ListTags(ctx, t.Namespace, t.Repository, t.Image)
	}
	if err != nil {
		return err
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].CreatedAt.After(tags[j].CreatedAt)
	})

	w := os.Stdout
	sec := output.NewSection(w, fmt.Sprintf("Tags: %s", t.RepoPath()), time.Since(start), output.UseColor())
	sec.Row("%-12s%s", "source", source)
	sec.Separator()
	if len(tags) == 0 {
		sec.Row("no tags found")
	}
	for _, tag := range tags {
		sec.Row("%-28s %-16s %s", tag.Name, shortDigest(tag.Digest), formatCreated(tag.CreatedAt))
	}
	sec.Close()
	return nil
}

// shortDigest trims a digest to the usual 12-hex display form.
func shortDigest(d string) string {
	for _, prefix := range []string{"sha256:", "sha512:"} {
		if len(d) > len(prefix) && d[:len(prefix)] == prefix {
			d = d[len(prefix):]
			break
		}
	}
	if len(d) > 12 {
		return d[:12]
	}
	if d == "" {
		return "-"
	}
	return d
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
