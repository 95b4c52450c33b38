package service

import (
	"strings"
	"time"

	"courtsync/internal/models"
)

const (
	defaultCourtType    = "indoor"
	defaultCourtSurface = "Padel"
	defaultOpenTime     = "08:00:00"
	defaultCloseTime    = "22:00:00"

	notesPrefix = "Synced from AYO"
)

var bookingStatuses = map[string]string{
	"PENDING":   models.BookingStatusPending,
	"CONFIRMED": models.BookingStatusConfirmed,
	"PAID":      models.BookingStatusPaid,
	"CANCELLED": models.BookingStatusCancelled,
	"FINISHED":  models.BookingStatusCompleted,
	"NO_SHOW":   models.BookingStatusNoShow,
}

// MapCourtStatus never yields maintenance; that status is set by hand only.
func MapCourtStatus(status string, isActive int) string {
	if status == "ACTIVE" && isActive == 1 {
		return models.CourtStatusActive
	}
	return models.CourtStatusClosed
}

// MapBookingStatus falls back to pending for anything it does not know.
func MapBookingStatus(remote string) string {
	if s, ok := bookingStatuses[remote]; ok {
		return s
	}
	return models.BookingStatusPending
}

// BilledHours counts whole hours, plus one for any leftover minutes.
// 1h01m bills 2, 2h00m bills 2.
func BilledHours(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := int(d / time.Hour)
	// seconds alone never start a new billed hour
	if d%time.Hour >= time.Minute {
		hours++
	}
	return hours
}

// FallbackPrice is used when AYO sends no total_price.
func FallbackPrice(start, end time.Time, pricePerHour float64) float64 {
	return float64(BilledHours(start, end)) * pricePerHour
}

func BuildBookingNotes(ayoBookingID, customerNotes string) string {
	lines := []string{notesPrefix, "AYO Booking ID: " + ayoBookingID}
	if n := strings.TrimSpace(customerNotes); n != "" {
		lines = append(lines, n)
	}
	return strings.Join(lines, "\n")
}

func defaultOperatingHours(courtID int64) []models.OperatingHour {
	hours := make([]models.OperatingHour, 7)
	for day := range hours {
		hours[day] = models.OperatingHour{
			CourtID:   courtID,
			DayOfWeek: day,
			OpenTime:  defaultOpenTime,
			CloseTime: defaultCloseTime,
			IsClosed:  false,
		}
	}
	return hours
}
