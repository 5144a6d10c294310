package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the berth version, commit hash, and build date.`,
	Run: func(cmd *cobra.Command, args []string) {
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Println(buildVersion)
			return
		}
		fmt.Printf("berth %s\n", buildVersion)
		fmt.Printf("Commit: %s\n", buildCommit)
		fmt.Printf("Built: %s\n", buildDate)
	},
}

func init() {
	versionCmd.Flags().BoolP("short", "s", false, "Show only version number")
	rootCmd.AddCommand(versionCmd)
}
