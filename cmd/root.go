// Package cmd implements the berth command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// Build information, set from main via Execute.
var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "berth",
	Short: "Berth - Container Registry Token Service",
	Long: `Berth issues bearer tokens for a Docker registry v2 daemon and
ingests its notification webhooks to keep repository metadata current.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is berth.toml in the standard search paths)")
}

// Execute runs the CLI with the given build information.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	cobra.CheckErr(rootCmd.Execute())
}
