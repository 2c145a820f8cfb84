// Package metadata recomputes property rollup counters from a property's
// inspections and deficient items.
package metadata

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"propcheck/internal/deficiency/derive"
	"propcheck/internal/deficiency/models"
	inspection "propcheck/internal/inspection/models"
	"propcheck/internal/platform/config"
	"propcheck/internal/platform/metrics"
	"propcheck/internal/property/store"
	dErrors "propcheck/pkg/domain-errors"
)

// Rollup field names.
const (
	FieldNumOfInspections     = "numOfInspections"
	FieldLastInspectionScore  = "lastInspectionScore"
	FieldLastInspectionDate   = "lastInspectionDate"
	FieldNumOfDeficientItems  = "numOfDeficientItems"
	FieldNumOfRequiredActions = "numOfRequiredActionsForDeficientItems"
	FieldNumOfFollowUpActions = "numOfFollowUpActionsForDeficientItems"
)

var tracer = otel.Tracer("propcheck/internal/property/metadata")

type InspectionSource interface {
	FindAllByProperty(ctx context.Context, propertyID string) ([]*inspection.Inspection, error)
}

type DeficientItemSource interface {
	FindAllByProperty(ctx context.Context, propertyID string) ([]*models.DeficientItem, error)
}

type PropertyStore interface {
	WritePath(ctx context.Context, path string, value any) error
}

// Updates maps absolute property paths to their new values.
type Updates map[string]any

// Input is what every stage reads.
type Input struct {
	PropertyID     string
	Inspections    []*inspection.Inspection
	DeficientItems []*models.DeficientItem
}

// Stage is a pure step adding its fields to updates.
type Stage func(in Input, updates Updates)

// Aggregator runs the rollup stages and persists the merged result.
type Aggregator struct {
	inspections InspectionSource
	items       DeficientItemSource
	properties  PropertyStore
	stages      []Stage
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

func New(inspections InspectionSource, items DeficientItemSource, properties PropertyStore, engine *derive.Engine, rules *config.Rules, opts ...Option) (*Aggregator, error) {
	switch {
	case inspections == nil:
		return nil, fmt.Errorf("inspection source is required")
	case items == nil:
		return nil, fmt.Errorf("deficient item source is required")
	case properties == nil:
		return nil, fmt.Errorf("property store is required")
	case engine == nil:
		return nil, fmt.Errorf("derive engine is required")
	case rules == nil:
		return nil, fmt.Errorf("rules are required")
	}
	a := &Aggregator{
		inspections: inspections,
		items:       items,
		properties:  properties,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.stages = []Stage{
		InspectionCount,
		LatestInspection,
		DeficientItemCounts(engine, rules, a.logger),
	}
	return a, nil
}

// Recompute rebuilds the rollups of propertyID and writes them path by path.
// A failed path does not stop the others; the returned Updates are the
// computed values and the error joins every failed write.
func (a *Aggregator) Recompute(ctx context.Context, propertyID string) (Updates, error) {
	ctx, span := tracer.Start(ctx, "metadata.Recompute")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", propertyID))

	inspections, err := a.inspections.FindAllByProperty(ctx, propertyID)
	if err != nil {
		span.SetStatus(codes.Error, "load inspections")
		return nil, fmt.Errorf("load inspections of %s: %w", propertyID, err)
	}
	items, err := a.items.FindAllByProperty(ctx, propertyID)
	if err != nil {
		span.SetStatus(codes.Error, "load deficient items")
		return nil, fmt.Errorf("load deficient items of %s: %w", propertyID, err)
	}

	updates := Compute(Input{PropertyID: propertyID, Inspections: inspections, DeficientItems: items}, a.stages...)

	var errs []error
	for _, path := range slices.Sorted(maps.Keys(updates)) {
		if err := a.properties.WritePath(ctx, path, updates[path]); err != nil {
			a.logger.WarnContext(ctx, "property path write failed",
				"path", path,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	a.metrics.IncrementPropertyPathFailures(len(errs))
	if len(errs) > 0 {
		span.SetStatus(codes.Error, "partial write")
	}
	return updates, errors.Join(errs...)
}

// Compute runs stages in order over in.
func Compute(in Input, stages ...Stage) Updates {
	updates := Updates{}
	for _, stage := range stages {
		stage(in, updates)
	}
	return updates
}

// InspectionCount writes the number of completed inspections.
func InspectionCount(in Input, updates Updates) {
	n := 0
	for _, insp := range in.Inspections {
		if insp != nil && insp.InspectionCompleted {
			n++
		}
	}
	updates[store.Path(in.PropertyID, FieldNumOfInspections)] = n
}

// LatestInspection copies score and date from the most recently created
// completed inspection. Nothing is written when there is none.
func LatestInspection(in Input, updates Updates) {
	completed := make([]*inspection.Inspection, 0, len(in.Inspections))
	for _, insp := range in.Inspections {
		if insp != nil && insp.InspectionCompleted {
			completed = append(completed, insp)
		}
	}
	if len(completed) == 0 {
		return
	}
	slices.SortStableFunc(completed, func(a, b *inspection.Inspection) int {
		return cmp.Compare(b.CreationDate, a.CreationDate)
	})
	latest := completed[0]
	updates[store.Path(in.PropertyID, FieldLastInspectionScore)] = latest.Score
	updates[store.Path(in.PropertyID, FieldLastInspectionDate)] = latest.CreationDate
}

// DeficientItemCounts re-derives the deficient item population from the
// inspections themselves, taking each item's live state from the stored
// record when there is one, and counts it by rollup class. Inspections that
// cannot be derived are logged and left out of the counts.
func DeficientItemCounts(engine *derive.Engine, rules *config.Rules, logger *slog.Logger) Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return func(in Input, updates Updates) {
		live := make(map[itemKey]string, len(in.DeficientItems))
		for _, di := range in.DeficientItems {
			if di != nil && !di.Archive {
				live[itemKey{inspection: di.Inspection, item: di.Item}] = di.State
			}
		}

		var total, required, followUp int
		for _, insp := range in.Inspections {
			expected, err := engine.Derive(insp)
			if err != nil {
				logDeriveSkip(logger, in.PropertyID, insp, err)
				continue
			}
			for itemID, di := range expected {
				state := di.State
				if s, ok := live[itemKey{inspection: insp.ID, item: itemID}]; ok {
					state = s
				}
				if !rules.IsExcludedFromCount(state) {
					total++
				}
				if rules.IsRequiredAction(state) {
					required++
				}
				if rules.IsFollowUpAction(state) {
					followUp++
				}
			}
		}
		updates[store.Path(in.PropertyID, FieldNumOfDeficientItems)] = total
		updates[store.Path(in.PropertyID, FieldNumOfRequiredActions)] = required
		updates[store.Path(in.PropertyID, FieldNumOfFollowUpActions)] = followUp
	}
}

type itemKey struct {
	inspection string
	item       string
}

// logDeriveSkip reports an inspection left out of the counts. Untracked or
// incomplete inspections are routine and logged at debug.
func logDeriveSkip(logger *slog.Logger, propertyID string, insp *inspection.Inspection, err error) {
	inspectionID := ""
	if insp != nil {
		inspectionID = insp.ID
	}
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodePrecondition) {
		level = slog.LevelDebug
	}
	logger.Log(context.Background(), level, "inspection skipped from deficient item counts",
		"property_id", propertyID,
		"inspection_id", inspectionID,
		"error", err,
	)
}
