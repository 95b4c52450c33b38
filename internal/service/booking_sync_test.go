package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/external/ayo"
	"courtsync/internal/lock"
	"courtsync/internal/logger"
	"courtsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var venueZone = time.FixedZone("WIB", 7*60*60)

func newBookingSync(db *memDB, src BookingSource, opts ...Option) *BookingSyncService {
	opts = append([]Option{WithLocation(venueZone)}, opts...)
	return NewBookingSyncService(src, db, lock.NewLocalLocker(), logger.Discard(), opts...)
}

func remoteBooking(id, fieldID, date, start, end, status, email string) ayo.Booking {
	return ayo.Booking{
		ID:          ayo.FlexibleString(id),
		FieldID:     ayo.FlexibleString(fieldID),
		BookingDate: date,
		StartTime:   start,
		EndTime:     end,
		Status:      status,
		TotalPrice:  price(150000),
		Customer:    ayo.Customer{Name: "Customer " + id, Email: email},
	}
}

func seedPadelCourt(db *memDB, fieldID string) models.Court {
	return db.seedCourt(models.Court{
		AyoFieldID:   strPtr(fieldID),
		Name:         "Court " + fieldID,
		Type:         "indoor",
		Status:       models.CourtStatusActive,
		Surface:      "Padel",
		PricePerHour: 100000,
	})
}

func TestBookingSync_CreatesUserAndBooking(t *testing.T) {
	db := newMemDB()
	court := seedPadelCourt(db, "10")

	remote := remoteBooking("B1", "10", "2025-03-01", "10:00:00", "11:30:00", "PAID", "andi@example.com")
	remote.Customer.Phone = "+62811"
	remote.Notes = "bring rackets"
	src := &fakeBookings{bookings: []ayo.Booking{remote}}

	filters := map[string]string{"date": "2025-03-01"}
	stats, err := newBookingSync(db, src).Sync(context.Background(), filters)
	require.NoError(t, err)
	assert.Equal(t, filters, src.filters)

	assert.True(t, stats.Success)
	assert.Equal(t, 1, stats.Created)

	state := db.snapshot()
	require.Len(t, state.users, 1)
	var user models.User
	for _, u := range state.users {
		user = u
	}
	assert.Equal(t, "andi@example.com", user.Email)
	assert.Equal(t, "Customer B1", user.Name)
	assert.Equal(t, models.RoleUser, user.Role)
	require.NotNil(t, user.Phone)
	assert.Equal(t, "+62811", *user.Phone)
	assert.True(t, strings.HasPrefix(user.Password, "$2"), "password must be a bcrypt hash")
	_, err = bcrypt.Cost([]byte(user.Password))
	assert.NoError(t, err)

	bookings := state.sortedBookings()
	require.Len(t, bookings, 1)
	b := bookings[0]
	assert.Equal(t, user.ID, b.UserID)
	assert.Equal(t, court.ID, b.CourtID)
	assert.True(t, b.StartTime.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, venueZone)))
	assert.True(t, b.EndTime.Equal(time.Date(2025, 3, 1, 11, 30, 0, 0, venueZone)))
	assert.Equal(t, models.BookingStatusPaid, b.Status)
	assert.Equal(t, 150000.0, b.TotalPrice)
	assert.Equal(t, "Synced from AYO\nAYO Booking ID: B1\nbring rackets", b.Notes)
}

func TestBookingSync_ReusesExistingUser(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	existing := db.seedUser(models.User{Name: "Andi", Email: "andi@example.com", Role: models.RoleUser, Password: "hash"})

	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "CONFIRMED", "andi@example.com"),
		remoteBooking("B2", "10", "2025-03-01", "12:00", "13:00", "CONFIRMED", "andi@example.com"),
	}}

	stats, err := newBookingSync(db, src).Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)

	state := db.snapshot()
	assert.Len(t, state.users, 1)
	for _, b := range state.bookings {
		assert.Equal(t, existing.ID, b.UserID)
	}
}

func TestBookingSync_CustomerWithoutNameUsesEmail(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	remote := remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "anon@example.com")
	remote.Customer.Name = ""

	_, err := newBookingSync(db, &fakeBookings{bookings: []ayo.Booking{remote}}).Sync(context.Background(), nil)
	require.NoError(t, err)

	for _, u := range db.snapshot().users {
		assert.Equal(t, "anon@example.com", u.Name)
		assert.Nil(t, u.Phone)
	}
}

func TestBookingSync_PartialFailure(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com"),
		remoteBooking("B2", "99", "2025-03-01", "11:00", "12:00", "PAID", "b@example.com"),
		remoteBooking("B3", "10", "2025-03-01", "12:00", "13:00", "PAID", "c@example.com"),
	}}

	stats, err := newBookingSync(db, src).Sync(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, stats.Success)
	assert.Equal(t, 2, stats.Processed())
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, "B2", stats.Errors[0].ID)
	assert.Equal(t, "Court with ayo_field_id 99 not found", stats.Errors[0].Error)

	assert.Len(t, db.snapshot().bookings, 2)
	assert.Equal(t, 1, db.commits)
}

func TestBookingSync_FailedItemLeavesNoTrace(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	db.failBookingCreate = func(b *models.Booking) error {
		if strings.Contains(b.Notes, "B2") {
			return errors.New("insert failed")
		}
		return nil
	}
	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com"),
		remoteBooking("B2", "10", "2025-03-01", "11:00", "12:00", "PAID", "b@example.com"),
		remoteBooking("B3", "10", "2025-03-01", "12:00", "13:00", "PAID", "c@example.com"),
	}}

	stats, err := newBookingSync(db, src).Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
	require.Len(t, stats.Errors, 1)

	state := db.snapshot()
	assert.Len(t, state.bookings, 2)
	require.Len(t, state.users, 2, "user created for the failed booking is rolled back with it")
	for _, u := range state.users {
		assert.NotEqual(t, "b@example.com", u.Email)
	}
}

func TestBookingSync_AllOrNothing(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com"),
		remoteBooking("B2", "99", "2025-03-01", "11:00", "12:00", "PAID", "b@example.com"),
		remoteBooking("B3", "10", "2025-03-01", "12:00", "13:00", "PAID", "c@example.com"),
	}}

	stats, err := newBookingSync(db, src, WithIsolation(AllOrNothing)).Sync(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsMapping(err))

	assert.False(t, stats.Success)
	assert.Len(t, stats.Errors, 1)
	state := db.snapshot()
	assert.Empty(t, state.bookings)
	assert.Empty(t, state.users)
	assert.Equal(t, 0, db.commits)
}

func TestBookingSync_FallbackPrice(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	remote := remoteBooking("B1", "10", "2025-03-01", "10:00", "11:01", "PAID", "a@example.com")
	remote.TotalPrice = nil

	_, err := newBookingSync(db, &fakeBookings{bookings: []ayo.Booking{remote}}).Sync(context.Background(), nil)
	require.NoError(t, err)

	bookings := db.snapshot().sortedBookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, 200000.0, bookings[0].TotalPrice)
}

func TestBookingSync_UpdatesStatusThenSkips(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PENDING", "a@example.com"),
	}}
	svc := newBookingSync(db, src)

	_, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)

	src.bookings[0].Status = "PAID"
	stats, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	require.Len(t, stats.Outcomes, 1)
	assert.Equal(t, models.Change{Old: models.BookingStatusPending, New: models.BookingStatusPaid}, stats.Outcomes[0].Changes["status"])
	assert.NotContains(t, stats.Outcomes[0].Changes, "total_price")

	stats, err = svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)

	bookings := db.snapshot().sortedBookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingStatusPaid, bookings[0].Status)
}

func TestBookingSync_MatchesOnSlotOnly(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com"),
	}}
	svc := newBookingSync(db, src)

	_, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)

	// A different AYO booking on the same court and slot lands on the same row.
	src.bookings = []ayo.Booking{
		remoteBooking("B7", "10", "2025-03-01", "10:00:00", "11:00:00", "PAID", "z@example.com"),
	}
	stats, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 1, stats.Skipped)
	assert.Len(t, db.snapshot().bookings, 1)
}

func TestBookingSync_TimeCorrectionInsertsDuplicate(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com"),
	}}
	svc := newBookingSync(db, src)

	_, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)

	src.bookings[0].StartTime = "11:00"
	src.bookings[0].EndTime = "12:00"
	stats, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)

	bookings := db.snapshot().sortedBookings()
	require.Len(t, bookings, 2)
	assert.Equal(t, 10, bookings[0].StartTime.Hour())
	assert.Equal(t, 11, bookings[1].StartTime.Hour())
	assert.Equal(t, bookings[0].Notes, bookings[1].Notes)
}

func TestBookingSync_InvalidItems(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(b *ayo.Booking)
		field string
	}{
		{"missing field id", func(b *ayo.Booking) { b.FieldID = "" }, "field_id"},
		{"end before start", func(b *ayo.Booking) { b.EndTime = "09:00" }, "end_time"},
		{"end equals start", func(b *ayo.Booking) { b.EndTime = b.StartTime }, "end_time"},
		{"unparseable start", func(b *ayo.Booking) { b.StartTime = "ten" }, "start_time"},
		{"missing date", func(b *ayo.Booking) { b.BookingDate = "" }, "booking_date"},
		{"missing email", func(b *ayo.Booking) { b.Customer.Email = " " }, "customer.email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemDB()
			seedPadelCourt(db, "10")
			remote := remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com")
			tt.edit(&remote)

			stats, err := newBookingSync(db, &fakeBookings{bookings: []ayo.Booking{remote}}).Sync(context.Background(), nil)
			require.NoError(t, err)

			require.Len(t, stats.Errors, 1)
			assert.True(t, strings.HasPrefix(stats.Errors[0].Error, tt.field+":"), stats.Errors[0].Error)
			state := db.snapshot()
			assert.Empty(t, state.bookings)
			assert.Empty(t, state.users)
		})
	}
}

func TestBookingSync_DiscardsMalformedEntries(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	src := &fakeBookings{
		bookings: []ayo.Booking{remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com")},
		invalid: []error{
			&apperrors.ValidationError{Field: "bookings[1]", Msg: "cannot decode"},
			&apperrors.ValidationError{Field: "bookings[2]", Msg: "cannot decode"},
		},
	}

	stats, err := newBookingSync(db, src).Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Discarded)
	assert.Equal(t, 1, stats.Created)
	assert.Empty(t, stats.Errors)
}

func TestBookingSync_FetchFailure(t *testing.T) {
	db := newMemDB()
	src := &fakeBookings{result: &ayo.Result{Success: false, StatusCode: 401, Error: "Unauthorized"}}

	stats, err := newBookingSync(db, src).Sync(context.Background(), nil)
	require.Error(t, err)

	var remoteErr *apperrors.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 401, remoteErr.StatusCode)
	assert.False(t, stats.Success)
	assert.Equal(t, 0, db.begins)
}

func TestBookingSync_IndependentLockFromCourts(t *testing.T) {
	db := newMemDB()
	seedPadelCourt(db, "10")
	locker := lock.NewLocalLocker()
	unlock, err := locker.TryLock(context.Background(), LockKeyCourts)
	require.NoError(t, err)
	defer unlock(context.Background())

	src := &fakeBookings{bookings: []ayo.Booking{
		remoteBooking("B1", "10", "2025-03-01", "10:00", "11:00", "PAID", "a@example.com"),
	}}
	svc := NewBookingSyncService(src, db, locker, logger.Discard(), WithLocation(venueZone))

	stats, err := svc.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)

	_, err = locker.TryLock(context.Background(), LockKeyBookings)
	assert.NoError(t, err)
	_, err = svc.Sync(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrSyncInProgress)
}
