package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/blogem/linkedin-login/models"
)

// SiteRepository interface defines site and company database operations
type SiteRepository interface {
	GetByHost(ctx context.Context, host string) (*models.Site, error)
	List(ctx context.Context) ([]models.Site, error)
	Create(ctx context.Context, site *models.Site) error
	CreateCompany(ctx context.Context, company *models.Company) error
	SetLinkedInCredentials(ctx context.Context, host string, cfg models.ProviderConfig) error
}

// siteRepository implements SiteRepository interface
type siteRepository struct {
	db *sql.DB
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db *sql.DB) SiteRepository {
	return &siteRepository{db: db}
}

const siteColumns = `id, host, name, company_id, linkedin_api_key, linkedin_api_secret`

func scanSite(row interface{ Scan(...any) error }) (*models.Site, error) {
	var site models.Site
	err := row.Scan(
		&site.ID,
		&site.Host,
		&site.Name,
		&site.CompanyID,
		&site.LinkedIn.APIKey,
		&site.LinkedIn.APISecret,
	)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// GetByHost retrieves the site serving the given host
func (r *siteRepository) GetByHost(ctx context.Context, host string) (*models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE host = ?`

	site, err := scanSite(r.db.QueryRowContext(ctx, query, normalizeHost(host)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %q: %w", host, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	return site, nil
}

// List retrieves all sites ordered by host
func (r *siteRepository) List(ctx context.Context) ([]models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites ORDER BY host ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, *site)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}

	return sites, nil
}

// Create creates a new site
func (r *siteRepository) Create(ctx context.Context, site *models.Site) error {
	query := `
		INSERT INTO sites (host, name, company_id, linkedin_api_key, linkedin_api_secret)
		VALUES (?, ?, ?, ?, ?)
	`

	site.Host = normalizeHost(site.Host)
	result, err := r.db.ExecContext(ctx, query,
		site.Host,
		site.Name,
		site.CompanyID,
		site.LinkedIn.APIKey,
		site.LinkedIn.APISecret,
	)
	if err != nil {
		return fmt.Errorf("failed to create site: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}

	site.ID = id
	return nil
}

// CreateCompany creates a new company
func (r *siteRepository) CreateCompany(ctx context.Context, company *models.Company) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO companies (name) VALUES (?)`, company.Name)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}

	company.ID = id
	return nil
}

// SetLinkedInCredentials replaces the LinkedIn API key and secret of a site
func (r *siteRepository) SetLinkedInCredentials(ctx context.Context, host string, cfg models.ProviderConfig) error {
	query := `
		UPDATE sites
		SET linkedin_api_key = ?, linkedin_api_secret = ?
		WHERE host = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		strings.TrimSpace(cfg.APIKey),
		strings.TrimSpace(cfg.APISecret),
		normalizeHost(host),
	)
	if err != nil {
		return fmt.Errorf("failed to update site credentials: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("site %q: %w", host, ErrNotFound)
	}

	return nil
}

// normalizeHost lowercases a host and strips any port
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndex(host, ":"); i != -1 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return host
}
