package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/blogem/linkedin-login/database"
	"github.com/blogem/linkedin-login/models"
	"github.com/blogem/linkedin-login/repositories"
)

func newSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage sites and their LinkedIn credentials",
	}

	cmd.AddCommand(newSiteAddCmd())
	cmd.AddCommand(newSiteCredentialsCmd())
	cmd.AddCommand(newSiteShowCmd())
	cmd.AddCommand(newSiteListCmd())
	return cmd
}

// withSites opens the database and hands the site repository to fn
func withSites(fn func(sites repositories.SiteRepository) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(repositories.NewSiteRepository(db))
}

func newSiteAddCmd() *cobra.Command {
	var name, company string
	var companyID int64

	cmd := &cobra.Command{
		Use:   "add <host>",
		Short: "Register a site served by this process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSites(func(sites repositories.SiteRepository) error {
				site, err := addSite(cmd, sites, args[0], name, company, companyID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added site %s (id %d, company %d)\n", site.Host, site.ID, site.CompanyID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name of the site (defaults to the host)")
	cmd.Flags().StringVar(&company, "company", "", "create a new company with this name for the site")
	cmd.Flags().Int64Var(&companyID, "company-id", 0, "attach the site to an existing company")
	cmd.MarkFlagsMutuallyExclusive("company", "company-id")
	return cmd
}

func addSite(cmd *cobra.Command, sites repositories.SiteRepository, host, name, company string, companyID int64) (*models.Site, error) {
	ctx := cmd.Context()

	if company == "" && companyID == 0 {
		return nil, errors.New("one of --company or --company-id is required")
	}
	if companyID == 0 {
		c := &models.Company{Name: company}
		if err := sites.CreateCompany(ctx, c); err != nil {
			return nil, err
		}
		companyID = c.ID
	}
	if name == "" {
		name = host
	}

	site := &models.Site{Host: host, Name: name, CompanyID: companyID}
	if err := sites.Create(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

func newSiteCredentialsCmd() *cobra.Command {
	var apiKey, apiSecret string

	cmd := &cobra.Command{
		Use:   "credentials <host>",
		Short: "Set the LinkedIn API key and secret of a site",
		Long: `Set the LinkedIn API key and secret of a site. Passing empty values
disables LinkedIn login for the site.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSites(func(sites repositories.SiteRepository) error {
				cfg := models.ProviderConfig{APIKey: apiKey, APISecret: apiSecret}
				if err := sites.SetLinkedInCredentials(cmd.Context(), args[0], cfg); err != nil {
					return err
				}

				state := "enabled"
				if !cfg.Available() {
					state = "disabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "LinkedIn login %s for %s\n", state, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "LinkedIn API key")
	cmd.Flags().StringVar(&apiSecret, "api-secret", "", "LinkedIn API secret")
	return cmd
}

func newSiteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <host>",
		Short: "Show a site and whether LinkedIn login is configured",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSites(func(sites repositories.SiteRepository) error {
				site, err := sites.GetByHost(cmd.Context(), args[0])
				if errors.Is(err, repositories.ErrNotFound) {
					return fmt.Errorf("no site serves %s", args[0])
				}
				if err != nil {
					return err
				}
				return printSites(cmd.OutOrStdout(), []models.Site{*site})
			})
		},
	}
}

func newSiteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSites(func(sites repositories.SiteRepository) error {
				all, err := sites.List(cmd.Context())
				if err != nil {
					return err
				}
				return printSites(cmd.OutOrStdout(), all)
			})
		},
	}
}

func printSites(out io.Writer, sites []models.Site) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHOST\tNAME\tCOMPANY\tLINKEDIN")
	for _, s := range sites {
		linkedIn := "not configured"
		if s.LinkedIn.Available() {
			linkedIn = "key " + maskKey(s.LinkedIn.APIKey)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", s.ID, s.Host, s.Name, s.CompanyID, linkedIn)
	}
	return tw.Flush()
}

// maskKey keeps the last four characters of an API key
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

