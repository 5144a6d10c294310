package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berthd/berth/internal/app"
	"github.com/berthd/berth/internal/domain"
)

var (
	repoOwner    string
	repoPrivate  bool
	repoOfficial bool
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repository records",
}

var repoAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a repository record",
	Long: `Create a repository record the token server authorizes against.
User repositories need --owner and are addressed as owner/name;
official repositories (--official) are addressed by their bare name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if !repoOfficial && repoOwner == "" {
			return fmt.Errorf("--owner is required unless --official is set")
		}

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

		store, err := app.OpenStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		visibility := domain.VisibilityPublic
		if repoPrivate {
			visibility = domain.VisibilityPrivate
		}

		repo, err := store.CreateRepository(cmd.Context(), repoOwner, name, visibility, repoOfficial)
		if err != nil {
			return err
		}

		fmt.Printf("Created repository %s (%s, %s)\n", repo.FullName(), repo.ID, repo.Visibility)
		return nil
	},
}

func init() {
	repoAddCmd.Flags().StringVar(&repoOwner, "owner", "", "owning account username")
	repoAddCmd.Flags().BoolVar(&repoPrivate, "private", false, "restrict pulls to the owner")
	repoAddCmd.Flags().BoolVar(&repoOfficial, "official", false, "create an official repository addressed by its bare name")
	repoCmd.AddCommand(repoAddCmd)
	rootCmd.AddCommand(repoCmd)
}
