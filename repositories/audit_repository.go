package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blogem/linkedin-login/models"
)

// AuditRepository handles audit log persistence
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByUser(ctx context.Context, userID int64) ([]models.AuditLogEntry, error)
}

type sqliteAuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &sqliteAuditRepository{db: db}
}

// Create inserts a new audit log entry
func (r *sqliteAuditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (timestamp, event, user_id, site_id, reason, handshake_id, user_agent, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx,
		query,
		entry.Timestamp,
		entry.Event,
		nullableID(entry.UserID),
		nullableID(entry.SiteID),
		entry.Reason,
		entry.HandshakeID,
		entry.UserAgent,
		entry.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByUser returns a user's audit entries, oldest first
func (r *sqliteAuditRepository) ListByUser(ctx context.Context, userID int64) ([]models.AuditLogEntry, error) {
	query := `
		SELECT id, timestamp, event, user_id, site_id, reason, handshake_id, user_agent, ip_address
		FROM audit_log
		WHERE user_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var entry models.AuditLogEntry
		var uid, sid sql.NullInt64
		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.Event,
			&uid,
			&sid,
			&entry.Reason,
			&entry.HandshakeID,
			&entry.UserAgent,
			&entry.IPAddress,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		entry.UserID = uid.Int64
		entry.SiteID = sid.Int64
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
