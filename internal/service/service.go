package service

import (
	"log/slog"
	"time"

	"courtsync/internal/external/ayo"
	"courtsync/internal/lock"
	"courtsync/internal/repository"
)

type Settings struct {
	CourtIsolation   FailureIsolation
	BookingIsolation FailureIsolation
	Location         *time.Location
	Listeners        []RunListener
}

type Services struct {
	Courts   *CourtSyncService
	Bookings *BookingSyncService
}

func NewServices(repos *repository.Repositories, client *ayo.Client, locker lock.Locker, log *slog.Logger, settings Settings) *Services {
	courts := NewCourtSyncService(client, repos.Courts, repos.UnitOfWork, locker, log,
		WithIsolation(settings.CourtIsolation),
		WithListeners(settings.Listeners...),
	)
	bookings := NewBookingSyncService(client, repos.UnitOfWork, locker, log,
		WithIsolation(settings.BookingIsolation),
		WithLocation(settings.Location),
		WithListeners(settings.Listeners...),
	)

	return &Services{
		Courts:   courts,
		Bookings: bookings,
	}
}
