package repository

import (
	"context"
	"fmt"

	"courtsync/internal/models"
)

type OperatingHourRepository struct {
	db DBTX
}

func NewOperatingHourRepository(db DBTX) *OperatingHourRepository {
	return &OperatingHourRepository{db: db}
}

func (r *OperatingHourRepository) CreateBatch(ctx context.Context, hours []models.OperatingHour) error {
	query := `
		INSERT INTO operating_hours (court_id, day_of_week, open_time, close_time, is_closed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	for i := range hours {
		h := &hours[i]
		err := r.db.QueryRowContext(ctx, query,
			h.CourtID,
			h.DayOfWeek,
			h.OpenTime,
			h.CloseTime,
			h.IsClosed,
		).Scan(&h.ID)
		if err != nil {
			return fmt.Errorf("failed to insert operating hour for day %d: %w", h.DayOfWeek, err)
		}
	}
	return nil
}

func (r *OperatingHourRepository) GetByCourtID(ctx context.Context, courtID int64) ([]models.OperatingHour, error) {
	var hours []models.OperatingHour
	query := `
		SELECT id, court_id, day_of_week, open_time::text, close_time::text, is_closed
		FROM operating_hours
		WHERE court_id = $1
		ORDER BY day_of_week`

	rows, err := r.db.QueryContext(ctx, query, courtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h models.OperatingHour
		if err := rows.Scan(&h.ID, &h.CourtID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}

	return hours, rows.Err()
}
