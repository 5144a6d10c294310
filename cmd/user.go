package cmd

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/berthd/berth/internal/app"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage registry accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Long:  `Create an account that can own repositories and authenticate for tokens. The password is read from the terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		cfg, err := app.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		log, cleanup, err := app.NewLogger(cfg)
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer cleanup()
		}

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if len(password) == 0 {
			return fmt.Errorf("password must not be empty")
		}

		store, err := app.OpenStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.CreateUser(cmd.Context(), username, string(password))
		if err != nil {
			return err
		}

		fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
