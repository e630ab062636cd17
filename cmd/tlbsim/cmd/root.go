// Package cmd provides the command-line interface of tlbsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tlbsim",
	Short: "tlbsim simulates a two-level TLB hierarchy.",
	Long: `tlbsim simulates per-core L1 TLBs backed by a shared L2 TLB and a ` +
		`page walker. Each core issues random translations, and the ` +
		`statistics of every TLB are reported when all of them are answered.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
