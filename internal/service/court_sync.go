package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "courtsync/internal/errors"
	"courtsync/internal/external/ayo"
	"courtsync/internal/lock"
	"courtsync/internal/models"
	"courtsync/internal/repository"
)

// FieldSource is the part of the AYO client court sync reads from.
type FieldSource interface {
	GetFields(ctx context.Context, filters map[string]string) (*ayo.FieldsResult, error)
	GetActiveFields(ctx context.Context) (*ayo.FieldsResult, error)
}

// CourtSyncService mirrors AYO fields into local courts.
type CourtSyncService struct {
	source    FieldSource
	courts    repository.CourtReader
	uow       repository.UnitOfWork
	isolation FailureIsolation
	runner    *runner
}

func NewCourtSyncService(source FieldSource, courts repository.CourtReader, uow repository.UnitOfWork, locker lock.Locker, log *slog.Logger, opts ...Option) *CourtSyncService {
	o := buildOptions(opts)
	isolation := AllOrNothing
	if o.isolation != nil {
		isolation = *o.isolation
	}

	return &CourtSyncService{
		source:    source,
		courts:    courts,
		uow:       uow,
		isolation: isolation,
		runner:    newRunner(models.SyncKindCourts, LockKeyCourts, locker, log.With("component", "court_sync"), o),
	}
}

// Sync reconciles every AYO field (only active ones when activeOnly) into
// the courts table. A dry run computes the same outcomes and writes nothing.
// The returned stats are never nil.
func (s *CourtSyncService) Sync(ctx context.Context, activeOnly, dryRun bool) (*models.SyncStats, error) {
	params := map[string]any{
		"active_only": activeOnly,
		"dry_run":     dryRun,
		"isolation":   s.isolation.String(),
	}
	return s.runner.run(ctx, params, func(ctx context.Context, log *slog.Logger, stats *models.SyncStats) error {
		stats.DryRun = dryRun
		return s.reconcile(ctx, log, stats, activeOnly, dryRun)
	})
}

// PreviewSync is Sync with dryRun forced on.
func (s *CourtSyncService) PreviewSync(ctx context.Context, activeOnly bool) (*models.SyncStats, error) {
	return s.Sync(ctx, activeOnly, true)
}

func (s *CourtSyncService) fetch(ctx context.Context, activeOnly bool) (*ayo.FieldsResult, error) {
	var (
		res *ayo.FieldsResult
		err error
	)
	if activeOnly {
		res, err = s.source.GetActiveFields(ctx)
	} else {
		res, err = s.source.GetFields(ctx, nil)
	}
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Err()
	}
	return res, nil
}

func (s *CourtSyncService) reconcile(ctx context.Context, log *slog.Logger, stats *models.SyncStats, activeOnly, dryRun bool) error {
	res, err := s.fetch(ctx, activeOnly)
	if err != nil {
		log.Error("Failed to fetch AYO fields", "error", err)
		return err
	}

	if len(res.Invalid) > 0 {
		if s.isolation == AllOrNothing {
			for _, invalid := range res.Invalid {
				stats.RecordError("", nil, invalid)
			}
			log.Error("Malformed fields in AYO response, nothing synced", "count", len(res.Invalid))
			return fmt.Errorf("%d malformed fields in AYO response: %w", len(res.Invalid), res.Invalid[0])
		}
		stats.Discarded = len(res.Invalid)
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, field := range res.Fields {
		identifiers := map[string]any{"ayo_field_id": field.ID.String(), "name": field.Name}

		var itemErr error
		if s.isolation == BestEffort {
			itemErr = isolate(ctx, tx, func() error { return s.syncField(ctx, tx, field, dryRun, stats) })
		} else {
			itemErr = s.syncField(ctx, tx, field, dryRun, stats)
		}
		if itemErr == nil {
			continue
		}

		stats.RecordError(field.ID.String(), identifiers, itemErr)
		if s.isolation == AllOrNothing {
			if err := tx.Rollback(); err != nil {
				log.Error("Failed to roll back court sync", "error", err)
			}
			log.Error("Court sync aborted, all changes rolled back", "ayo_field_id", field.ID.String(), "error", itemErr)
			return fmt.Errorf("court sync aborted at ayo field %s: %w", field.ID, itemErr)
		}
		log.Warn("Failed to sync court", "ayo_field_id", field.ID.String(), "error", itemErr)
	}

	if dryRun {
		if err := tx.Rollback(); err != nil {
			return err
		}
		log.Info("Court sync dry run, nothing persisted", "fields", len(res.Fields))
		return nil
	}

	return tx.Commit()
}

func courtData(field ayo.Field) models.Court {
	fieldID := field.ID.String()
	surface := field.SportName
	if surface == "" {
		surface = defaultCourtSurface
	}
	return models.Court{
		AyoFieldID: &fieldID,
		Name:       field.Name,
		Type:       defaultCourtType,
		Status:     MapCourtStatus(field.Status, int(field.IsActive)),
		Surface:    surface,
	}
}

// diffCourt compares everything sync owns except the correlation key.
func diffCourt(existing *models.Court, desired models.Court) map[string]models.Change {
	changes := map[string]models.Change{}
	if existing.Name != desired.Name {
		changes["name"] = models.Change{Old: existing.Name, New: desired.Name}
	}
	if existing.Type != desired.Type {
		changes["type"] = models.Change{Old: existing.Type, New: desired.Type}
	}
	if existing.Status != desired.Status {
		changes["status"] = models.Change{Old: existing.Status, New: desired.Status}
	}
	if existing.Surface != desired.Surface {
		changes["surface"] = models.Change{Old: existing.Surface, New: desired.Surface}
	}
	return changes
}

func (s *CourtSyncService) syncField(ctx context.Context, tx repository.Tx, field ayo.Field, dryRun bool, stats *models.SyncStats) error {
	if strings.TrimSpace(field.Name) == "" {
		return &apperrors.ValidationError{Field: "name", Msg: "missing"}
	}

	desired := courtData(field)
	fieldID := *desired.AyoFieldID
	identifiers := map[string]any{"ayo_field_id": fieldID, "name": desired.Name}

	existing, err := tx.Courts().GetByAyoFieldID(ctx, fieldID)
	if err != nil {
		return fmt.Errorf("failed to look up court: %w", err)
	}

	if existing != nil {
		identifiers["court_id"] = existing.ID
		changes := diffCourt(existing, desired)
		if len(changes) == 0 {
			stats.Record(models.SyncOutcome{Action: models.ActionSkipped, Identifiers: identifiers})
			return nil
		}

		if !dryRun {
			updated := *existing
			updated.Name = desired.Name
			updated.Type = desired.Type
			updated.Status = desired.Status
			updated.Surface = desired.Surface
			if err := tx.Courts().Update(ctx, &updated); err != nil {
				return fmt.Errorf("failed to update court %d: %w", existing.ID, err)
			}
		}
		stats.Record(models.SyncOutcome{Action: models.ActionUpdated, Identifiers: identifiers, Changes: changes})
		return nil
	}

	if !dryRun {
		// Pricing is left for an operator to set.
		court := desired
		court.PricePerHour = 0
		if err := tx.Courts().Create(ctx, &court); err != nil {
			return fmt.Errorf("failed to create court: %w", err)
		}
		if err := tx.OperatingHours().CreateBatch(ctx, defaultOperatingHours(court.ID)); err != nil {
			return fmt.Errorf("failed to create operating hours for court %d: %w", court.ID, err)
		}
		identifiers["court_id"] = court.ID
	}
	stats.Record(models.SyncOutcome{Action: models.ActionCreated, Identifiers: identifiers})
	return nil
}

// IsCourtSyncedWithAyo reports whether the court carries an AYO field id.
// A missing court is simply not synced.
func (s *CourtSyncService) IsCourtSyncedWithAyo(ctx context.Context, courtID int64) (bool, error) {
	court, err := s.courts.GetByID(ctx, courtID)
	if err != nil {
		return false, fmt.Errorf("failed to get court: %w", err)
	}
	return court != nil && court.AyoFieldID != nil, nil
}

// GetAyoFieldID returns nil for a court that was never synced and
// ErrNotFound for an unknown court.
func (s *CourtSyncService) GetAyoFieldID(ctx context.Context, courtID int64) (*string, error) {
	court, err := s.courts.GetByID(ctx, courtID)
	if err != nil {
		return nil, fmt.Errorf("failed to get court: %w", err)
	}
	if court == nil {
		return nil, apperrors.ErrNotFound
	}
	return court.AyoFieldID, nil
}

// GetCourtByAyoFieldID returns nil, nil when no court is linked to fieldID.
func (s *CourtSyncService) GetCourtByAyoFieldID(ctx context.Context, fieldID string) (*models.Court, error) {
	court, err := s.courts.GetByAyoFieldID(ctx, fieldID)
	if err != nil {
		return nil, fmt.Errorf("failed to get court: %w", err)
	}
	return court, nil
}
