package store

import (
	"database/sql"
	"strings"

	"github.com/ReelBites/ReelBites/internal/models"
)

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for anything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession reads one session record from a row.
func scanSession(row rowScanner) (*models.Session, error) {
	var sess models.Session
	err := row.Scan(
		&sess.UserID, &sess.ReelsContent, &sess.StoreName, &sess.Tone, &sess.LocationRetryCount,
		&sess.IsToneSelected, &sess.HasReel, &sess.IsStoreConfirmed, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// collectSessions drains rows into a slice.
func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	var out []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
