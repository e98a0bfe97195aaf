package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"welfare-workers/internal/common/database"
	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/models"
)

const applicationColumns = `id, user_id, scheme_id, scheme_name, category, status,
	form_data, remarks, status_history, date_applied, last_updated, version`

type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Get(ctx context.Context, id string) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get application", err)
	}
	return app, nil
}

// Put inserts a new application. The partial unique index on
// (user_id, scheme_id) rejects a second active application.
func (r *ApplicationRepository) Put(ctx context.Context, app *models.Application) error {
	formData, history, err := encodeApplication(app)
	if err != nil {
		return apperrors.NewStorageError("encode application", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		app.ID, app.UserID, app.SchemeID, app.SchemeName, app.Category, string(app.Status),
		formData, app.Remarks, history, app.DateApplied, app.LastUpdated, app.Version,
	)
	if database.IsUniqueViolation(err, "") {
		return apperrors.NewDuplicateApplicationError(app.UserID, app.SchemeID)
	}
	if err != nil {
		return apperrors.NewStorageError("insert application", err)
	}
	return nil
}

func (r *ApplicationRepository) CompareAndSwap(ctx context.Context, app *models.Application, expectedVersion int64) (bool, error) {
	formData, history, err := encodeApplication(app)
	if err != nil {
		return false, apperrors.NewStorageError("encode application", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, form_data = $3, remarks = $4, status_history = $5,
		    last_updated = $6, version = $7
		WHERE id = $1 AND version = $8`,
		app.ID, string(app.Status), formData, app.Remarks, history,
		app.LastUpdated, app.Version, expectedVersion,
	)
	if err != nil {
		return false, apperrors.NewStorageError("update application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStorageError("update application", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, app.ID).Scan(&exists); err != nil {
		return false, apperrors.NewStorageError("check application", err)
	}
	if !exists {
		return false, apperrors.NewNotFoundError("application", app.ID)
	}
	return false, nil
}

// FindActive returns nil when the user has no non-rejected application for
// the scheme.
func (r *ApplicationRepository) FindActive(ctx context.Context, userID, schemeID string) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE user_id = $1 AND scheme_id = $2 AND status <> 'rejected' LIMIT 1`, userID, schemeID)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("find active application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, error) {
	var c conditions
	if filter.UserID != "" {
		c.eq("user_id", filter.UserID)
	}
	if filter.SchemeID != "" {
		c.eq("scheme_id", filter.SchemeID)
	}
	if filter.Status != "" {
		c.eq("status", string(filter.Status))
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications`+
		c.where()+` ORDER BY date_applied DESC, id`, c.args...)
	if err != nil {
		return nil, apperrors.NewStorageError("list applications", err)
	}
	defer rows.Close()

	out := make([]*models.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scan application", err)
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list applications", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(s scanner) (*models.Application, error) {
	var (
		app      models.Application
		status   string
		formData []byte
		history  []byte
	)
	if err := s.Scan(&app.ID, &app.UserID, &app.SchemeID, &app.SchemeName, &app.Category, &status,
		&formData, &app.Remarks, &history, &app.DateApplied, &app.LastUpdated, &app.Version); err != nil {
		return nil, err
	}
	app.Status = models.ApplicationStatus(status)
	if err := json.Unmarshal(formData, &app.FormData); err != nil {
		return nil, fmt.Errorf("decode form_data: %w", err)
	}
	if err := json.Unmarshal(history, &app.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status_history: %w", err)
	}
	return &app, nil
}

func encodeApplication(app *models.Application) (formData, history []byte, err error) {
	fd := app.FormData
	if fd == nil {
		fd = map[string]interface{}{}
	}
	if formData, err = json.Marshal(fd); err != nil {
		return nil, nil, err
	}
	h := app.StatusHistory
	if h == nil {
		h = []models.StatusHistoryEntry{}
	}
	if history, err = json.Marshal(h); err != nil {
		return nil, nil, err
	}
	return formData, history, nil
}
