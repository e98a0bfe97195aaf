package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"welfare-workers/internal/common/database"
	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/eligibility"
	"welfare-workers/internal/models"

	"github.com/lib/pq"
)

const schemeColumns = `id, name, description, category, state, government_level,
	target_beneficiaries, benefit_amount, documents, rules, status, created_at, updated_at`

type SchemeStore struct {
	db *sql.DB
}

func NewSchemeStore(db *sql.DB) *SchemeStore {
	return &SchemeStore{db: db}
}

func (s *SchemeStore) Insert(ctx context.Context, sc *models.Scheme) error {
	rules, err := encodeRules(sc.Rules)
	if err != nil {
		return apperrors.NewStorageError("encode scheme rules", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schemes (`+schemeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sc.ID, sc.Name, sc.Description, sc.Category, sc.State, sc.GovernmentLevel,
		sc.TargetBeneficiaries, sc.BenefitAmount, pq.Array(documents(sc)), rules,
		string(sc.Status), sc.CreatedAt, sc.UpdatedAt,
	)
	if database.IsUniqueViolation(err, "") {
		return apperrors.NewDuplicateSchemeError(sc.Name)
	}
	if err != nil {
		return apperrors.NewStorageError("insert scheme", err)
	}
	return nil
}

func (s *SchemeStore) Update(ctx context.Context, sc *models.Scheme) error {
	rules, err := encodeRules(sc.Rules)
	if err != nil {
		return apperrors.NewStorageError("encode scheme rules", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE schemes SET name = $2, description = $3, category = $4, state = $5,
			government_level = $6, target_beneficiaries = $7, benefit_amount = $8,
			documents = $9, rules = $10, status = $11, updated_at = $12
		WHERE id = $1`,
		sc.ID, sc.Name, sc.Description, sc.Category, sc.State, sc.GovernmentLevel,
		sc.TargetBeneficiaries, sc.BenefitAmount, pq.Array(documents(sc)), rules,
		string(sc.Status), sc.UpdatedAt,
	)
	if database.IsUniqueViolation(err, "schemes_name_key") {
		return apperrors.NewDuplicateSchemeError(sc.Name)
	}
	if err != nil {
		return apperrors.NewStorageError("update scheme", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperrors.NewStorageError("update scheme", err)
	} else if n == 0 {
		return apperrors.NewNotFoundError("scheme", sc.ID)
	}
	return nil
}

func (s *SchemeStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schemes WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewStorageError("delete scheme", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperrors.NewStorageError("delete scheme", err)
	} else if n == 0 {
		return apperrors.NewNotFoundError("scheme", id)
	}
	return nil
}

func (s *SchemeStore) Get(ctx context.Context, id string) (*models.Scheme, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+schemeColumns+` FROM schemes WHERE id = $1`, id)
	sc, err := scanScheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("scheme", id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get scheme", err)
	}
	return sc, nil
}

// List returns schemes in insertion order.
func (s *SchemeStore) List(ctx context.Context) ([]*models.Scheme, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+schemeColumns+` FROM schemes ORDER BY seq`)
	if err != nil {
		return nil, apperrors.NewStorageError("list schemes", err)
	}
	defer rows.Close()

	out := make([]*models.Scheme, 0)
	for rows.Next() {
		sc, err := scanScheme(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scan scheme", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list schemes", err)
	}
	return out, nil
}

func scanScheme(s scanner) (*models.Scheme, error) {
	var (
		sc     models.Scheme
		docs   []string
		rules  []byte
		status string
	)
	if err := s.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Category, &sc.State, &sc.GovernmentLevel,
		&sc.TargetBeneficiaries, &sc.BenefitAmount, pq.Array(&docs), &rules, &status,
		&sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return nil, err
	}
	sc.Documents = docs
	sc.Status = models.SchemeStatus(status)
	if len(rules) > 0 && string(rules) != "null" {
		sc.Rules = &eligibility.RuleSet{}
		if err := json.Unmarshal(rules, sc.Rules); err != nil {
			return nil, err
		}
	}
	return &sc, nil
}

func encodeRules(r *eligibility.RuleSet) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func documents(sc *models.Scheme) []string {
	if sc.Documents == nil {
		return []string{}
	}
	return sc.Documents
}
