package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

// AuditStore only ever inserts into audit_log.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, e *models.AuditLogEntry) error {
	var metadata []byte
	if e.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(e.Metadata); err != nil {
			return apperrors.NewStorageError("encode audit metadata", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action_type, performed_by, performed_by_role, target_id, target_type, timestamp, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ActionType, e.PerformedBy, e.PerformedByRole, e.TargetID, e.TargetType, e.Timestamp, metadata,
	)
	if err != nil {
		return apperrors.NewStorageError("append audit entry", err)
	}
	return nil
}

func (s *AuditStore) Query(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLogEntry, error) {
	var c conditions
	if filter.ActionType != "" {
		c.eq("action_type", filter.ActionType)
	}
	if filter.TargetID != "" {
		c.eq("target_id", filter.TargetID)
	}
	if filter.ActorID != "" {
		c.eq("performed_by", filter.ActorID)
	}
	query := `SELECT id, action_type, performed_by, performed_by_role, target_id, target_type, timestamp, metadata
		FROM audit_log` + c.where() + ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, apperrors.NewStorageError("query audit log", err)
	}
	defer rows.Close()

	var out []*models.AuditLogEntry
	for rows.Next() {
		var (
			e        models.AuditLogEntry
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.ActionType, &e.PerformedBy, &e.PerformedByRole,
			&e.TargetID, &e.TargetType, &e.Timestamp, &metadata); err != nil {
			return nil, apperrors.NewStorageError("scan audit entry", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, apperrors.NewStorageError("decode audit metadata", err)
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("query audit log", err)
	}
	return out, nil
}

func (s *AuditStore) DistinctActionTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT action_type FROM audit_log ORDER BY action_type`)
	if err != nil {
		return nil, apperrors.NewStorageError("list audit action types", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, apperrors.NewStorageError("scan action type", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list audit action types", err)
	}
	return out, nil
}
