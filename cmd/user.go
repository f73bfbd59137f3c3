package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blogem/linkedin-login/database"
	"github.com/blogem/linkedin-login/repositories"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local user accounts",
	}

	cmd.AddCommand(newUserActiveCmd("enable", "Allow a user to log in again", true))
	cmd.AddCommand(newUserActiveCmd("disable", "Refuse further logins for a user", false))
	return cmd
}

func newUserActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Initialize(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repositories.NewUserRepository(db).SetActive(cmd.Context(), id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d %sd\n", id, use)
			return nil
		},
	}
}
