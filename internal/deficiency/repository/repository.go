// Package repository writes every deficient item to both the operational
// store (hot path, keyed by property) and the analytic store (predicate
// queries). The two writes are not transactional: a failed second write is
// reported as sentinel.ErrPartialWrite without undoing the first, and the
// analytic copy is re-sent by the next pass that touches the record.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"propcheck/internal/deficiency/models"
	dErrors "propcheck/pkg/domain-errors"
	"propcheck/pkg/platform/sentinel"
)

type OperationalStore interface {
	Create(ctx context.Context, di *models.DeficientItem) error
	Update(ctx context.Context, di *models.DeficientItem) error
	Get(ctx context.Context, ref models.Ref) (*models.DeficientItem, models.Location, error)
	Move(ctx context.Context, di *models.DeficientItem, archive bool) error
	ClaimHolder(ctx context.Context, inspectionID, itemID string) (string, error)
	FindAllByProperty(ctx context.Context, propertyID string) ([]*models.DeficientItem, error)
}

type AnalyticStore interface {
	Upsert(ctx context.Context, di *models.DeficientItem) error
	FindByID(ctx context.Context, id string) (*models.DeficientItem, error)
	FindAllByInspection(ctx context.Context, inspectionID string) ([]*models.DeficientItem, error)
	FindByStates(ctx context.Context, propertyID string, states []string) ([]*models.DeficientItem, error)
	ListPropertiesWithStates(ctx context.Context, states []string) ([]string, error)
}

// TicketBoard mirrors archive changes onto an external card.
type TicketBoard interface {
	SyncArchive(ctx context.Context, ref models.Ref, archived bool) (cardID string, err error)
}

// Repository is the only writer of deficient items.
type Repository struct {
	ops      OperationalStore
	analytic AnalyticStore
	board    TicketBoard
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Repository)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

func WithTicketBoard(board TicketBoard) Option {
	return func(r *Repository) {
		r.board = board
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides uuid ids, for deterministic tests.
func WithIDGenerator(newID func() string) Option {
	return func(r *Repository) {
		if newID != nil {
			r.newID = newID
		}
	}
}

func New(ops OperationalStore, analytic AnalyticStore, opts ...Option) (*Repository, error) {
	if ops == nil {
		return nil, fmt.Errorf("operational store is required")
	}
	if analytic == nil {
		return nil, fmt.Errorf("analytic store is required")
	}
	r := &Repository{
		ops:      ops,
		analytic: analytic,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Create stores a new active record for di under propertyID and returns its
// id. When another active record already holds the same inspection item the
// call fails with CodeConflict and the holder's analytic copy is refreshed.
func (r *Repository) Create(ctx context.Context, propertyID string, di *models.DeficientItem) (string, error) {
	if di == nil {
		return "", dErrors.New(dErrors.CodeValidation, "deficient item is required")
	}
	if propertyID == "" || di.Inspection == "" || di.Item == "" {
		return "", dErrors.New(dErrors.CodeValidation, "property, inspection and item are required")
	}
	now := r.now().Unix()
	rec := di.Clone()
	rec.ID = r.newID()
	rec.Property = propertyID
	rec.Archive = false
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if err := r.ops.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			r.refreshHolder(ctx, propertyID, rec.Inspection, rec.Item)
			return "", dErrors.Wrap(err, dErrors.CodeConflict, "deficient item already exists")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "create deficient item")
	}
	if err := r.analytic.Upsert(ctx, rec); err != nil {
		return rec.ID, partialWrite(err)
	}
	return rec.ID, nil
}

// refreshHolder re-sends the active claim holder to the analytic store. A
// create that lost its analytic write leaves the holder invisible to
// inspection queries until this runs.
func (r *Repository) refreshHolder(ctx context.Context, propertyID, inspectionID, itemID string) {
	holder, err := r.ops.ClaimHolder(ctx, inspectionID, itemID)
	if err != nil {
		return
	}
	di, loc, err := r.ops.Get(ctx, models.Ref{PropertyID: propertyID, ID: holder})
	if err != nil || loc != models.LocationActive {
		return
	}
	if err := r.analytic.Upsert(ctx, di); err != nil {
		r.logger.WarnContext(ctx, "refresh analytic copy failed",
			"property_id", propertyID,
			"deficient_item_id", holder,
			"error", err,
		)
	}
}

// Update overwrites the active record id. Archived records are not updated.
func (r *Repository) Update(ctx context.Context, propertyID, id string, di *models.DeficientItem) error {
	if di == nil {
		return dErrors.New(dErrors.CodeValidation, "deficient item is required")
	}
	rec := di.Clone()
	rec.ID = id
	rec.Property = propertyID
	if rec.UpdatedAt == 0 {
		rec.UpdatedAt = r.now().Unix()
	}

	if err := r.ops.Update(ctx, rec); err != nil {
		return translate(err, "update deficient item")
	}
	if err := r.analytic.Upsert(ctx, rec); err != nil {
		return partialWrite(err)
	}
	return nil
}

// Get reads the authoritative record and where it lives.
func (r *Repository) Get(ctx context.Context, ref models.Ref) (*models.DeficientItem, models.Location, error) {
	di, loc, err := r.ops.Get(ctx, ref)
	if err != nil {
		return nil, models.LocationNone, translate(err, "get deficient item")
	}
	return di, loc, nil
}

// FindAllByInspection returns the active records derived from an inspection.
func (r *Repository) FindAllByInspection(ctx context.Context, inspectionID string) ([]*models.DeficientItem, error) {
	items, err := r.analytic.FindAllByInspection(ctx, inspectionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find deficient items by inspection")
	}
	return items, nil
}

// FindAllByProperty returns the active records of a property.
func (r *Repository) FindAllByProperty(ctx context.Context, propertyID string) ([]*models.DeficientItem, error) {
	items, err := r.ops.FindAllByProperty(ctx, propertyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find deficient items by property")
	}
	return items, nil
}

func (r *Repository) FindByStates(ctx context.Context, propertyID string, states []string) ([]*models.DeficientItem, error) {
	items, err := r.analytic.FindByStates(ctx, propertyID, states)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find deficient items by state")
	}
	return items, nil
}

func (r *Repository) ListPropertiesWithStates(ctx context.Context, states []string) ([]string, error) {
	ids, err := r.analytic.ListPropertiesWithStates(ctx, states)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list properties by state")
	}
	return ids, nil
}

// ToggleArchive moves ref to the archive (archiving = true) or back. It acts
// only when the record's actual location disagrees with the request, so
// repeated calls change nothing beyond re-sending an analytic copy that
// disagrees with the operational record. The ticket board is notified best
// effort.
func (r *Repository) ToggleArchive(ctx context.Context, ref models.Ref, archiving bool) (models.ArchiveResult, error) {
	di, loc, err := r.ops.Get(ctx, ref)
	if err != nil {
		return models.ArchiveResult{}, translate(err, "locate deficient item")
	}
	if (loc == models.LocationArchived) == archiving {
		di.Archive = archiving
		return models.ArchiveResult{Archived: archiving}, r.heal(ctx, di)
	}

	di.Archive = archiving
	di.UpdatedAt = r.now().Unix()
	if err := r.ops.Move(ctx, di, archiving); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// lost a race with an identical request
			return models.ArchiveResult{Archived: archiving}, nil
		}
		return models.ArchiveResult{}, translate(err, "move deficient item")
	}
	result := models.ArchiveResult{Archived: archiving, Changed: true}

	writeErr := r.analytic.Upsert(ctx, di)
	result.ExternalCardChanged = r.notifyBoard(ctx, ref, archiving)
	if writeErr != nil {
		return result, partialWrite(writeErr)
	}
	return result, nil
}

// heal re-sends di to the analytic store when the stored copy is missing or
// disagrees with it on archive flag, state or update time.
func (r *Repository) heal(ctx context.Context, di *models.DeficientItem) error {
	stored, err := r.analytic.FindByID(ctx, di.ID)
	switch {
	case err == nil && stored.Archive == di.Archive && stored.State == di.State && stored.UpdatedAt == di.UpdatedAt:
		return nil
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		r.logger.WarnContext(ctx, "read analytic copy failed",
			"property_id", di.Property,
			"deficient_item_id", di.ID,
			"error", err,
		)
	}
	if err := r.analytic.Upsert(ctx, di); err != nil {
		return partialWrite(err)
	}
	r.logger.InfoContext(ctx, "analytic copy healed",
		"property_id", di.Property,
		"deficient_item_id", di.ID,
		"archived", di.Archive,
	)
	return nil
}

func (r *Repository) notifyBoard(ctx context.Context, ref models.Ref, archived bool) string {
	if r.board == nil {
		return ""
	}
	cardID, err := r.board.SyncArchive(ctx, ref, archived)
	switch {
	case err == nil:
		return cardID
	case dErrors.HasCode(err, dErrors.CodeAlreadyRemoved):
		r.logger.InfoContext(ctx, "ticket board card already removed",
			"property_id", ref.PropertyID,
			"deficient_item_id", ref.ID,
		)
	default:
		r.logger.WarnContext(ctx, "ticket board sync failed",
			"property_id", ref.PropertyID,
			"deficient_item_id", ref.ID,
			"archived", archived,
			"error", err,
		)
	}
	return ""
}

// partialWrite tags a failed analytic write that followed a successful
// operational one.
func partialWrite(err error) error {
	return dErrors.Wrap(fmt.Errorf("%w: %w", sentinel.ErrPartialWrite, err), dErrors.CodeInternal, "write analytic copy")
}

func translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
