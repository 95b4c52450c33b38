package models

import (
	"time"
)

// Court statuses. Sync only ever assigns active or closed.
const (
	CourtStatusActive      = "active"
	CourtStatusMaintenance = "maintenance"
	CourtStatusClosed      = "closed"
)

// Booking statuses
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusPaid      = "paid"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
	BookingStatusNoShow    = "no_show"
)

const RoleUser = "user"

// Court represents a bookable court in the venue
type Court struct {
	ID           int64     `json:"id" db:"id"`
	AyoFieldID   *string   `json:"ayo_field_id" db:"ayo_field_id"`
	Name         string    `json:"name" db:"name"`
	Type         string    `json:"type" db:"type"`
	Surface      string    `json:"surface" db:"surface"`
	Status       string    `json:"status" db:"status"`
	PricePerHour float64   `json:"price_per_hour" db:"price_per_hour"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// OperatingHour is one weekday's opening window for a court
type OperatingHour struct {
	ID        int64  `json:"id" db:"id"`
	CourtID   int64  `json:"court_id" db:"court_id"`
	DayOfWeek int    `json:"day_of_week" db:"day_of_week"`
	OpenTime  string `json:"open_time" db:"open_time"`
	CloseTime string `json:"close_time" db:"close_time"`
	IsClosed  bool   `json:"is_closed" db:"is_closed"`
}

// User represents a user in the system
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     *string   `json:"phone" db:"phone"`
	Role      string    `json:"role" db:"role"`
	Password  string    `json:"-" db:"password"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Booking represents a court booking in the system
type Booking struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	CourtID    int64     `json:"court_id" db:"court_id"`
	StartTime  time.Time `json:"start_time" db:"start_time"`
	EndTime    time.Time `json:"end_time" db:"end_time"`
	Status     string    `json:"status" db:"status"`
	TotalPrice float64   `json:"total_price" db:"total_price"`
	Notes      string    `json:"notes" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
