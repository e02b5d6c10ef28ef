package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/moorline/stevedore/src/output"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate the docker daemon against the registry",
	Long: `Authenticate for pushes without running a build. ghcr logs in with the
configured token over stdin; gar installs the gcloud credential helper
for its registry host.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&flagRegistry, "registry", "", "registry backend: ghcr or gar")
	loginCmd.Flags().StringVar(&flagNamespace, "namespace", "", "login identity (ghcr owner)")
	addTokenFlag(loginCmd)
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	t, be, err := resolveTarget(cmd, args)
	if err != nil {
		return err
	}

	w := os.Stdout
	color := output.UseColor()

	output.Fold(w, "sd_login", "Login")
	start := time.Now()
	loginErr := be.Login(context.Background(), t.Namespace, t.Secret)
	elapsed := time.Since(start)

	sec := output.NewSection(w, "Login", elapsed, color)
	sec.Row("%-12s%s", "registry", t.Host)
	sec.Row("%-12s%s", "method", loginMethod(be.Name(), t.Namespace))
	if loginErr != nil {
		sec.RowStatus("status", "authentication failed", "failed")
	} else {
		sec.RowStatus("status", "authenticated", "success")
	}
	sec.Close()
	output.FoldEnd(w, "sd_login")

	return loginErr
}

func loginMethod(backend, namespace string) string {
	if backend == "gar" {
		return "gcloud credential helper"
	}
	return fmt.Sprintf("token login as %s", namespace)
}
