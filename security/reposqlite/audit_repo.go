package sqliteauditrepo

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/filevault/filevault/security"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var _ security.AuditRepo = (*AuditRepo)(nil)

// AuditRepo persists audit events in SQLite.
type AuditRepo struct {
	db *sql.DB
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	details_json TEXT,
	ip_address TEXT,
	user_agent TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_user_time ON audit_events(user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_user_type ON audit_events(user_id, type);
`

func New(db *sql.DB) (*AuditRepo, error) {
	if _, err := db.Exec(auditSchema); err != nil {
		return nil, errors.Wrap(err, "[sqliteauditrepo.New] init schema")
	}
	return &AuditRepo{db: db}, nil
}

func (ar *AuditRepo) Append(event *security.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	var detailsJSON []byte
	if len(event.Details) > 0 {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return errors.Wrap(err, "[AuditRepo.Append] marshal details")
		}
	}

	_, err := ar.db.Exec(`
		INSERT INTO audit_events (id, user_id, type, timestamp, details_json, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.Type, event.Timestamp, string(detailsJSON), event.IPAddress, event.UserAgent)
	if err != nil {
		return errors.Wrap(err, "[AuditRepo.Append] exec")
	}
	return nil
}

func (ar *AuditRepo) ListByUser(userID string, since time.Time, limit int) ([]*security.AuditEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := ar.db.Query(`
		SELECT id, user_id, type, timestamp, details_json, ip_address, user_agent
		FROM audit_events
		WHERE user_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?`, userID, since, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[AuditRepo.ListByUser] query")
	}
	defer rows.Close()

	events := make([]*security.AuditEvent, 0)
	for rows.Next() {
		var (
			event       security.AuditEvent
			detailsJSON sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Timestamp,
			&detailsJSON, &event.IPAddress, &event.UserAgent); err != nil {
			return nil, errors.Wrap(err, "[AuditRepo.ListByUser] scan")
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &event.Details); err != nil {
				return nil, errors.Wrap(err, "[AuditRepo.ListByUser] unmarshal details")
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

func (ar *AuditRepo) CountByUserAndType(userID, eventType string, since time.Time) (int, error) {
	var count int
	err := ar.db.QueryRow(`
		SELECT COUNT(*) FROM audit_events
		WHERE user_id = ? AND type = ? AND timestamp >= ?`, userID, eventType, since).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "[AuditRepo.CountByUserAndType] query")
	}
	return count, nil
}
