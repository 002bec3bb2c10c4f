// Command billingctl checks billing configuration and inspects checkout state.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyforge-app/config"
)

var Version = "dev"

func main() {
	config.LoadDotEnv()

	rootCmd := &cobra.Command{
		Use:     "billingctl",
		Short:   "Billing operations for storyforge",
		Version: Version,
	}
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(checkEnvCmd())
	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(attemptsCmd())
	rootCmd.AddCommand(syncFlagCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
