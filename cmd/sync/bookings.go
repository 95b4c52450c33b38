package main

import (
	"context"
	"fmt"
	"time"

	"courtsync/internal/app"
	"courtsync/internal/models"

	"github.com/spf13/cobra"
)

func bookingsCmd() *cobra.Command {
	var req models.SyncBookingsRequest

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Sync AYO bookings",
		Example: "  sync bookings --date 2025-03-01\n" +
			"  sync bookings --start-date 2025-03-01 --end-date 2025-03-07 --status PAID",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := bookingFilters(req)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Services.Bookings.Sync(ctx, filters)
				return writeStats(cmd.OutOrStdout(), stats, err)
			})
		},
	}

	cmd.Flags().StringVar(&req.Date, "date", "", "Booking date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.StartDate, "start-date", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.EndDate, "end-date", "", "Range end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.BookingID, "booking-id", "", "Single AYO booking id")
	cmd.Flags().StringVar(&req.FieldName, "field-name", "", "AYO field name")
	cmd.Flags().StringVar(&req.Status, "status", "", "AYO booking status, e.g. PAID")
	return cmd
}

// bookingFilters checks the date flags before anything is fetched.
func bookingFilters(req models.SyncBookingsRequest) (map[string]string, error) {
	for flag, value := range map[string]string{"--date": req.Date, "--start-date": req.StartDate, "--end-date": req.EndDate} {
		if value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return nil, fmt.Errorf("invalid %s %q (expected YYYY-MM-DD)", flag, value)
		}
	}
	if req.StartDate != "" && req.EndDate != "" && req.StartDate > req.EndDate {
		return nil, fmt.Errorf("--start-date must be on or before --end-date")
	}
	return req.Filters(), nil
}
