package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/models"
	"github.com/blogem/linkedin-login/repositories"
)

// ErrAccountDisabled is returned when the matching local account is deactivated
var ErrAccountDisabled = errors.New("account is disabled")

// LinkResult is the local user an identity claim resolved to
type LinkResult struct {
	User    *models.User
	Created bool
}

// AccountLinker maps identity claims to local users of a company
type AccountLinker struct {
	users repositories.UserRepository
	log   *zap.Logger
}

// NewAccountLinker creates a new account linker
func NewAccountLinker(users repositories.UserRepository, log *zap.Logger) *AccountLinker {
	return &AccountLinker{users: users, log: log}
}

// Link finds or creates the company's user for the claimed email. Lookups
// include deactivated accounts so they are never shadowed by a new one;
// resolving to one fails with ErrAccountDisabled.
func (l *AccountLinker) Link(ctx context.Context, claim *models.IdentityClaim, companyID int64) (*LinkResult, error) {
	email := strings.TrimSpace(claim.Email)
	if email == "" {
		return nil, errors.New("identity claim has no email")
	}

	user, err := l.find(ctx, companyID, email)
	if err != nil {
		return nil, err
	}

	created := false
	if user == nil {
		user, created, err = l.create(ctx, claim, companyID, email)
		if err != nil {
			return nil, err
		}
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	if !user.LinkedInAuth {
		if err := l.users.MarkLinkedIn(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to link user %d: %w", user.ID, err)
		}
		user.LinkedInAuth = true
	}

	return &LinkResult{User: user, Created: created}, nil
}

// find returns the lowest id match, or nil when there is none
func (l *AccountLinker) find(ctx context.Context, companyID int64, email string) (*models.User, error) {
	users, err := l.users.FindByEmail(ctx, companyID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	user := users[0]
	for _, u := range users[1:] {
		if u.ID < user.ID {
			user = u
		}
	}

	if len(users) > 1 {
		ids := make([]int64, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		l.log.Warn("multiple users share an email within a company, using the oldest",
			zap.Int64("company_id", companyID),
			zap.Int64s("user_ids", ids),
			zap.Int64("chosen_id", user.ID),
		)
	}

	return &user, nil
}

// create registers a new user. It reports false when a concurrent handshake
// created the account first and that account is returned instead.
func (l *AccountLinker) create(ctx context.Context, claim *models.IdentityClaim, companyID int64, email string) (*models.User, bool, error) {
	l.log.Debug("registering new linkedin user", zap.Int64("company_id", companyID), zap.String("name", claim.DisplayName()))

	user := &models.User{
		CompanyID:    companyID,
		Email:        email,
		DisplayName:  claim.DisplayName(),
		LinkedInAuth: true,
		Active:       true,
	}
	err := l.users.CreateWithParty(ctx, user)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, repositories.ErrDuplicateUser) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	existing, findErr := l.find(ctx, companyID, email)
	if findErr != nil {
		return nil, false, findErr
	}
	if existing == nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return existing, false, nil
}
