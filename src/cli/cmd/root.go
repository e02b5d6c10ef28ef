package cmd

import (
	"fmt"
	"os"

	"github.com/moorline/stevedore/src/config"
	"github.com/moorline/stevedore/src/run"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	runner  run.Runner
)

var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Container image build-and-publish orchestrator",
	Long: `Stevedore builds single- and multi-architecture container images and
publishes them to GitHub Container Registry (token login) or Google
Artifact Registry (ambient gcloud credentials).

Every setting resolves through a layered cascade, each layer overriding
the one below: built-in defaults, .stevedore.yml (or .toml), environment
variables, command-line flags.

Settings:
` + config.SettingsHelp(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Version answers from ldflags alone.
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg.ApplyEnv()
		runner = run.NewExecRunner(verbose)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .stevedore.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
