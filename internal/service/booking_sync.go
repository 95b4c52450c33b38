package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/external/ayo"
	"courtsync/internal/lock"
	"courtsync/internal/models"
	"courtsync/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04:05", "15:04"}

// BookingSource is the part of the AYO client booking sync reads from.
type BookingSource interface {
	GetBookings(ctx context.Context, filters map[string]string) (*ayo.BookingsResult, error)
}

// BookingSyncService mirrors AYO bookings into local bookings, creating
// customers as users when needed.
type BookingSyncService struct {
	source    BookingSource
	uow       repository.UnitOfWork
	isolation FailureIsolation
	location  *time.Location
	hasher    func(string) (string, error)
	runner    *runner
}

func NewBookingSyncService(source BookingSource, uow repository.UnitOfWork, locker lock.Locker, log *slog.Logger, opts ...Option) *BookingSyncService {
	o := buildOptions(opts)
	isolation := BestEffort
	if o.isolation != nil {
		isolation = *o.isolation
	}

	return &BookingSyncService{
		source:    source,
		uow:       uow,
		isolation: isolation,
		location:  o.location,
		hasher:    o.hasher,
		runner:    newRunner(models.SyncKindBookings, LockKeyBookings, locker, log.With("component", "booking_sync"), o),
	}
}

// Sync pulls the bookings matching filters and reconciles them. With the
// default best-effort isolation a bad booking is recorded in the stats and
// the rest of the batch still commits. The returned stats are never nil.
func (s *BookingSyncService) Sync(ctx context.Context, filters map[string]string) (*models.SyncStats, error) {
	params := map[string]any{
		"filters":   filters,
		"isolation": s.isolation.String(),
	}
	return s.runner.run(ctx, params, func(ctx context.Context, log *slog.Logger, stats *models.SyncStats) error {
		return s.reconcile(ctx, log, stats, filters)
	})
}

func (s *BookingSyncService) reconcile(ctx context.Context, log *slog.Logger, stats *models.SyncStats, filters map[string]string) error {
	res, err := s.source.GetBookings(ctx, filters)
	if err == nil && !res.Success {
		err = res.Err()
	}
	if err != nil {
		log.Error("Failed to fetch AYO bookings", "error", err)
		return err
	}

	stats.Discarded = len(res.Invalid)
	for _, invalid := range res.Invalid {
		log.Warn("Discarded malformed AYO booking", "error", invalid)
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, remote := range res.Bookings {
		identifiers := map[string]any{
			"ayo_booking_id": remote.ID.String(),
			"ayo_field_id":   remote.FieldID.String(),
		}

		var itemErr error
		if s.isolation == BestEffort {
			itemErr = isolate(ctx, tx, func() error { return s.syncBooking(ctx, tx, remote, stats) })
		} else {
			itemErr = s.syncBooking(ctx, tx, remote, stats)
		}
		if itemErr == nil {
			continue
		}

		stats.RecordError(remote.ID.String(), identifiers, itemErr)
		if s.isolation == AllOrNothing {
			if err := tx.Rollback(); err != nil {
				log.Error("Failed to roll back booking sync", "error", err)
			}
			log.Error("Booking sync aborted, all changes rolled back", "ayo_booking_id", remote.ID.String(), "error", itemErr)
			return fmt.Errorf("booking sync aborted at ayo booking %s: %w", remote.ID, itemErr)
		}
		log.Warn("Failed to sync booking", "ayo_booking_id", remote.ID.String(), "error", itemErr)
	}

	return tx.Commit()
}

func (s *BookingSyncService) syncBooking(ctx context.Context, tx repository.Tx, remote ayo.Booking, stats *models.SyncStats) error {
	ayoID := remote.ID.String()
	fieldID := remote.FieldID.String()
	if fieldID == "" {
		return &apperrors.ValidationError{Field: "field_id", Msg: "missing"}
	}

	court, err := tx.Courts().GetByAyoFieldID(ctx, fieldID)
	if err != nil {
		return fmt.Errorf("failed to look up court: %w", err)
	}
	if court == nil {
		return &apperrors.MappingError{Resource: "Court", Key: "ayo_field_id", Value: fieldID}
	}

	start, end, err := s.bookingWindow(remote)
	if err != nil {
		return err
	}

	user, err := s.resolveUser(ctx, tx, remote.Customer)
	if err != nil {
		return err
	}

	status := MapBookingStatus(remote.Status)
	price, ok := remote.Price()
	if !ok {
		price = FallbackPrice(start, end, court.PricePerHour)
	}

	identifiers := map[string]any{
		"ayo_booking_id": ayoID,
		"ayo_field_id":   fieldID,
		"court_id":       court.ID,
		"user_id":        user.ID,
		"start_time":     start,
		"end_time":       end,
	}

	// Matched on the slot only, AYO's booking id is not stored. If AYO moves
	// a booking to another time, the next run inserts it again and the row
	// at the old time stays behind.
	existing, err := tx.Bookings().FindBySlot(ctx, court.ID, start, end)
	if err != nil {
		return fmt.Errorf("failed to look up booking: %w", err)
	}

	if existing != nil {
		identifiers["booking_id"] = existing.ID
		changes := map[string]models.Change{}
		if existing.Status != status {
			changes["status"] = models.Change{Old: existing.Status, New: status}
		}
		if !samePrice(existing.TotalPrice, price) {
			changes["total_price"] = models.Change{Old: existing.TotalPrice, New: price}
		}
		if len(changes) == 0 {
			stats.Record(models.SyncOutcome{Action: models.ActionSkipped, Identifiers: identifiers})
			return nil
		}

		updated := *existing
		updated.Status = status
		updated.TotalPrice = price
		if err := tx.Bookings().Update(ctx, &updated); err != nil {
			return fmt.Errorf("failed to update booking %d: %w", existing.ID, err)
		}
		stats.Record(models.SyncOutcome{Action: models.ActionUpdated, Identifiers: identifiers, Changes: changes})
		return nil
	}

	booking := &models.Booking{
		UserID:     user.ID,
		CourtID:    court.ID,
		StartTime:  start,
		EndTime:    end,
		Status:     status,
		TotalPrice: price,
		Notes:      BuildBookingNotes(ayoID, remote.Notes),
	}
	if err := tx.Bookings().Create(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	identifiers["booking_id"] = booking.ID
	stats.Record(models.SyncOutcome{Action: models.ActionCreated, Identifiers: identifiers})
	return nil
}

// bookingWindow reads booking_date plus start/end clock times in the venue zone.
func (s *BookingSyncService) bookingWindow(remote ayo.Booking) (time.Time, time.Time, error) {
	start, err := parseLocal(remote.BookingDate, remote.StartTime, "start_time", s.location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseLocal(remote.BookingDate, remote.EndTime, "end_time", s.location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, &apperrors.ValidationError{Field: "end_time", Msg: "must be after start_time"}
	}
	return start, end, nil
}

func parseLocal(date, clock, field string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, &apperrors.ValidationError{Field: "booking_date", Msg: "missing"}
	}
	if clock == "" {
		return time.Time{}, &apperrors.ValidationError{Field: field, Msg: "missing"}
	}

	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation(dateLayout+" "+layout, date+" "+clock, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &apperrors.ValidationError{Field: field, Msg: fmt.Sprintf("cannot parse %q %q", date, clock)}
}

func (s *BookingSyncService) resolveUser(ctx context.Context, tx repository.Tx, customer ayo.Customer) (*models.User, error) {
	email := strings.TrimSpace(customer.Email)
	if email == "" {
		return nil, &apperrors.ValidationError{Field: "customer.email", Msg: "missing"}
	}

	user, err := tx.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	// Nobody knows this password; the customer has to reset it to log in.
	password, err := s.hasher(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(customer.Name)
	if name == "" {
		name = email
	}
	var phone *string
	if p := strings.TrimSpace(customer.Phone); p != "" {
		phone = &p
	}

	user = &models.User{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Role:     models.RoleUser,
		Password: password,
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return user, nil
}

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Prices are stored with two decimals.
func samePrice(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}
