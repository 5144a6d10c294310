package cmd

import (
	"github.com/spf13/cobra"

	"github.com/berthd/berth/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the token and webhook server",
	Long:  `Start the HTTP server exposing the registry token endpoint and the notification webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunServer(cmd.Context(), cfgFile)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
