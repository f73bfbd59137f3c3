package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/blogem/linkedin-login/models"
)

// UserRepository interface defines local user database operations
type UserRepository interface {
	// FindByEmail returns every user of the company with the given email,
	// deactivated ones included, ordered by id
	FindByEmail(ctx context.Context, companyID int64, email string) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// CreateWithParty creates the user and its party record atomically
	CreateWithParty(ctx context.Context, user *models.User) error
	// MarkLinkedIn sets the linkedin_auth flag. There is no way to clear it.
	MarkLinkedIn(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, party_id, company_id, email, display_name, linkedin_auth, active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.PartyID,
		&user.CompanyID,
		&user.Email,
		&user.DisplayName,
		&user.LinkedInAuth,
		&user.Active,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail retrieves users matching email within a company
func (r *userRepository) FindByEmail(ctx context.Context, companyID int64, email string) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE company_id = ? AND email = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, companyID, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user with ID %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// CreateWithParty inserts the party and the user in one transaction
func (r *userRepository) CreateWithParty(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT INTO parties (name) VALUES (?)`, user.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to create party: %w", err)
	}
	partyID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted party ID: %w", err)
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (party_id, company_id, email, display_name, linkedin_auth, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err = tx.ExecContext(ctx, query,
		partyID,
		user.CompanyID,
		strings.TrimSpace(user.Email),
		user.DisplayName,
		user.LinkedInAuth,
		user.Active,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	user.ID = id
	user.PartyID = partyID
	return nil
}

// MarkLinkedIn flags the user as authenticated through LinkedIn
func (r *userRepository) MarkLinkedIn(ctx context.Context, id int64) error {
	return r.updateFlag(ctx, `UPDATE users SET linkedin_auth = 1 WHERE id = ?`, id)
}

// SetActive activates or deactivates a user
func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.updateFlag(ctx, `UPDATE users SET active = ? WHERE id = ?`, active, id)
}

func (r *userRepository) updateFlag(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with ID %v: %w", args[len(args)-1], ErrNotFound)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
