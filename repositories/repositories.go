package repositories

import (
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a looked up record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUser is returned when a user with the same email already
	// exists in the company
	ErrDuplicateUser = errors.New("user already exists for this company")
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	Sites SiteRepository
	Users UserRepository
	Audit AuditRepository
}

// NewRepositories creates and initializes all repositories. Site lookups are
// cached for siteCacheTTL when it is positive.
func NewRepositories(db *sql.DB, siteCacheTTL time.Duration) *Repositories {
	var sites SiteRepository = NewSiteRepository(db)
	if siteCacheTTL > 0 {
		sites = NewCachedSiteRepository(sites, siteCacheTTL)
	}

	return &Repositories{
		Sites: sites,
		Users: NewUserRepository(db),
		Audit: NewAuditRepository(db),
	}
}
