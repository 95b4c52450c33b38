package repository

import (
	"context"
	"database/sql"
	"time"

	"courtsync/internal/models"
)

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindBySlot returns the booking occupying exactly [start, end) on the court.
// This is the only key synced bookings are matched on; no vendor id is stored.
func (r *BookingRepository) FindBySlot(ctx context.Context, courtID int64, start, end time.Time) (*models.Booking, error) {
	booking := &models.Booking{}
	var notes sql.NullString
	query := `
		SELECT id, user_id, court_id, start_time, end_time, status, total_price, notes,
		       created_at, updated_at
		FROM bookings
		WHERE court_id = $1 AND start_time = $2 AND end_time = $3
		ORDER BY id
		LIMIT 1`

	err := r.db.QueryRowContext(ctx, query, courtID, start, end).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.CourtID,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Status,
		&booking.TotalPrice,
		&notes,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	booking.Notes = notes.String
	return booking, nil
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (user_id, court_id, start_time, end_time, status, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		booking.UserID,
		booking.CourtID,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.TotalPrice,
		booking.Notes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

// Update writes back the fields sync is allowed to change.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, total_price = $2, updated_at = NOW()
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query,
		booking.Status,
		booking.TotalPrice,
		booking.ID,
	)
	return err
}
