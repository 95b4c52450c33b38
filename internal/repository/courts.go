package repository

import (
	"context"
	"database/sql"

	"courtsync/internal/models"
)

type CourtRepository struct {
	db DBTX
}

func NewCourtRepository(db DBTX) *CourtRepository {
	return &CourtRepository{db: db}
}

const courtColumns = `id, ayo_field_id, name, type, COALESCE(surface, ''), status, price_per_hour, created_at, updated_at`

func (r *CourtRepository) GetByID(ctx context.Context, id int64) (*models.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *CourtRepository) GetByAyoFieldID(ctx context.Context, fieldID string) (*models.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE ayo_field_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, fieldID))
}

func (r *CourtRepository) scanOne(row *sql.Row) (*models.Court, error) {
	court := &models.Court{}
	var fieldID sql.NullString

	err := row.Scan(
		&court.ID,
		&fieldID,
		&court.Name,
		&court.Type,
		&court.Surface,
		&court.Status,
		&court.PricePerHour,
		&court.CreatedAt,
		&court.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if fieldID.Valid {
		court.AyoFieldID = &fieldID.String
	}
	return court, nil
}

func (r *CourtRepository) Create(ctx context.Context, court *models.Court) error {
	query := `
		INSERT INTO courts (ayo_field_id, name, type, surface, status, price_per_hour)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		court.AyoFieldID,
		court.Name,
		court.Type,
		court.Surface,
		court.Status,
		court.PricePerHour,
	).Scan(&court.ID, &court.CreatedAt, &court.UpdatedAt)
}

func (r *CourtRepository) Update(ctx context.Context, court *models.Court) error {
	query := `
		UPDATE courts
		SET ayo_field_id = $1, name = $2, type = $3, surface = $4, status = $5, updated_at = NOW()
		WHERE id = $6`

	_, err := r.db.ExecContext(ctx, query,
		court.AyoFieldID,
		court.Name,
		court.Type,
		court.Surface,
		court.Status,
		court.ID,
	)
	return err
}
