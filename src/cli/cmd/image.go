package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:     "image",
	Aliases: []string{"show"},
	Short:   "Print the resolved image reference",
	Long: `Resolve the image reference from configuration, environment and flags
and print it without touching docker or the registry. With --rolling the
rolling aliases are printed too, one per line, so the output composes in
scripts.`,
	Args: cobra.NoArgs,
	RunE: runImage,
}

func init() {
	addTargetFlags(imageCmd)
	rootCmd.AddCommand(imageCmd)
}

func runImage(cmd *cobra.Command, args []string) error {
	t, _, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}
	for _, ref := range t.References() {
		fmt.Fprintln(cmd.OutOrStdout(), ref)
	}
	return nil
}
