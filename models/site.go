package models

import "strings"

// ProviderConfig holds a site's LinkedIn API credentials
type ProviderConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"-"`
}

// Available reports whether both credentials are configured
func (c ProviderConfig) Available() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.APISecret) != ""
}

// Company is the tenant boundary for user lookups
type Company struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Site is a website served by this process, resolved from the request host
type Site struct {
	ID        int64          `json:"id" db:"id"`
	Host      string         `json:"host" db:"host"`
	Name      string         `json:"name" db:"name"`
	CompanyID int64          `json:"company_id" db:"company_id"`
	LinkedIn  ProviderConfig `json:"linkedin"`
}
