package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blogem/linkedin-login/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.Initialize(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", cfg.DatabasePath)
			return nil
		},
	}
}
