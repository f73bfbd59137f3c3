package models

import (
	"strings"
	"time"
)

// Party is the profile record every user is attached to
type Party struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// User is a local account, optionally linked to a LinkedIn identity
type User struct {
	ID           int64     `json:"id" db:"id"`
	PartyID      int64     `json:"party_id" db:"party_id"`
	CompanyID    int64     `json:"company_id" db:"company_id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	LinkedInAuth bool      `json:"linkedin_auth" db:"linkedin_auth"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IdentityClaim is what LinkedIn asserts about the authenticating member.
// It is consumed immediately by account linking and never stored.
type IdentityClaim struct {
	ExternalID string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

// DisplayName joins first and last name the way new accounts are named
func (c IdentityClaim) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
