package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blogem/linkedin-login/config"
)

var envFile string

// newRootCmd builds the base command and its subcommands
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linkedin-login",
		Short: "LinkedIn login for multi-site storefronts",
		Long: `linkedin-login serves the LinkedIn sign in handshake for every site
configured in its database and manages the sites' LinkedIn credentials.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSiteCmd())
	rootCmd.AddCommand(newUserCmd())
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(envFile)
}
