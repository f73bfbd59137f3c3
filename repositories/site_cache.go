package repositories

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/blogem/linkedin-login/models"
)

// cachedSiteRepository keeps recently resolved sites in memory so the
// per-request host lookup does not hit the database
type cachedSiteRepository struct {
	SiteRepository
	cache *gocache.Cache
}

// NewCachedSiteRepository wraps a SiteRepository with a TTL cache on GetByHost
func NewCachedSiteRepository(inner SiteRepository, ttl time.Duration) SiteRepository {
	return &cachedSiteRepository{
		SiteRepository: inner,
		cache:          gocache.New(ttl, 2*ttl),
	}
}

// GetByHost returns a copy of the cached site, loading it on a miss
func (r *cachedSiteRepository) GetByHost(ctx context.Context, host string) (*models.Site, error) {
	key := normalizeHost(host)
	if v, ok := r.cache.Get(key); ok {
		site := v.(models.Site)
		return &site, nil
	}

	site, err := r.SiteRepository.GetByHost(ctx, host)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, *site)
	return site, nil
}

// SetLinkedInCredentials updates the site and drops its cache entry
func (r *cachedSiteRepository) SetLinkedInCredentials(ctx context.Context, host string, cfg models.ProviderConfig) error {
	defer r.cache.Delete(normalizeHost(host))
	return r.SiteRepository.SetLinkedInCredentials(ctx, host, cfg)
}
