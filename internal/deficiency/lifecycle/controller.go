// Package lifecycle reconciles the stored deficient items of an inspection
// with the ones its template currently calls for, on every inspection write.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"propcheck/internal/deficiency/derive"
	"propcheck/internal/deficiency/diff"
	"propcheck/internal/deficiency/metrics"
	"propcheck/internal/deficiency/models"
	"propcheck/internal/deficiency/proxy"
	inspection "propcheck/internal/inspection/models"
	"propcheck/internal/property/metadata"
	dErrors "propcheck/pkg/domain-errors"
)

var tracer = otel.Tracer("propcheck/internal/deficiency/lifecycle")

type Repository interface {
	Create(ctx context.Context, propertyID string, di *models.DeficientItem) (string, error)
	Update(ctx context.Context, propertyID, id string, di *models.DeficientItem) error
	Get(ctx context.Context, ref models.Ref) (*models.DeficientItem, models.Location, error)
	FindAllByInspection(ctx context.Context, inspectionID string) ([]*models.DeficientItem, error)
	ToggleArchive(ctx context.Context, ref models.Ref, archiving bool) (models.ArchiveResult, error)
}

type StatusPublisher interface {
	PublishStateChange(ctx context.Context, ref models.Ref, state string) error
}

type MetadataRecomputer interface {
	Recompute(ctx context.Context, propertyID string) (metadata.Updates, error)
}

// Report counts what one inspection write did. Skipped counts matched items
// whose proxy attributes were already current.
type Report struct {
	Archived int
	Updated  int
	Created  int
	Skipped  int
	Failed   int
}

// Controller applies derive, diff and proxy sync to inspection writes.
// Items of one inspection are processed sequentially.
type Controller struct {
	repo       Repository
	engine     *derive.Engine
	syncer     *proxy.Syncer
	publisher  StatusPublisher
	aggregator MetadataRecomputer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithPublisher(p StatusPublisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithAggregator recomputes property rollups after every handled write.
func WithAggregator(a MetadataRecomputer) Option {
	return func(c *Controller) {
		c.aggregator = a
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func New(repo Repository, engine *derive.Engine, syncer *proxy.Syncer, opts ...Option) (*Controller, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("derive engine is required")
	}
	if syncer == nil {
		return nil, fmt.Errorf("proxy syncer is required")
	}
	c := &Controller{
		repo:   repo,
		engine: engine,
		syncer: syncer,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HandleInspectionWrite reconciles the deficient items of the written
// inspection. Failures of single items are logged and counted; errors that
// are not classified (CodeInternal) are returned once every item has been
// tried, so the caller can redeliver the event.
func (c *Controller) HandleInspectionWrite(ctx context.Context, event inspection.WriteEvent) (Report, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "lifecycle.HandleInspectionWrite")
	defer span.End()
	propertyID := event.PropertyID()
	span.SetAttributes(
		attribute.String("inspection.id", event.InspectionID),
		attribute.String("property.id", propertyID),
		attribute.Bool("inspection.deleted", event.Deleted()),
	)

	var (
		report Report
		err    error
	)
	switch {
	case event.Deleted():
		report, err = c.archiveAll(ctx, event.InspectionID)
	case !event.After.TracksDeficientItems():
		return Report{}, nil
	default:
		report, err = c.reconcile(ctx, event.After)
	}

	c.metrics.ObserveReconcile(report.Created, report.Updated, report.Archived, start)
	c.logger.InfoContext(ctx, "inspection write reconciled",
		"inspection_id", event.InspectionID,
		"property_id", propertyID,
		"archived", report.Archived,
		"updated", report.Updated,
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return report, err
	}
	c.recompute(ctx, propertyID)
	return report, nil
}

// pass accumulates the outcome of one inspection write.
type pass struct {
	report Report
	fatal  []error
}

func (p *pass) err() error {
	return errors.Join(p.fatal...)
}

// archiveAll archives every active item of a deleted inspection.
func (c *Controller) archiveAll(ctx context.Context, inspectionID string) (Report, error) {
	current, err := c.repo.FindAllByInspection(ctx, inspectionID)
	if err != nil {
		return Report{}, fmt.Errorf("load deficient items: %w", err)
	}
	var p pass
	for _, di := range current {
		c.archive(ctx, &p, di)
	}
	return p.report, p.err()
}

func (c *Controller) reconcile(ctx context.Context, insp *inspection.Inspection) (Report, error) {
	expected, err := c.engine.Derive(insp)
	if err != nil {
		return Report{}, err
	}
	list, err := c.repo.FindAllByInspection(ctx, insp.ID)
	if err != nil {
		return Report{}, fmt.Errorf("load deficient items: %w", err)
	}
	current := make(map[string]*models.DeficientItem, len(list))
	for _, di := range list {
		current[di.ID] = di
	}

	var p pass
	for _, id := range diff.FindMissing(current, expected) {
		c.archive(ctx, &p, current[id])
	}
	for _, id := range diff.FindMatching(current, expected) {
		c.update(ctx, &p, current[id], expected[current[id].Item])
	}
	for _, itemID := range diff.FindMissing(expected, current) {
		c.create(ctx, &p, insp.Property, expected[itemID])
	}
	return p.report, p.err()
}

func (c *Controller) archive(ctx context.Context, p *pass, di *models.DeficientItem) {
	result, err := c.repo.ToggleArchive(ctx, di.Ref(), true)
	if err != nil {
		c.fail(ctx, p, "archive", di, err)
		return
	}
	if result.Changed {
		p.report.Archived++
	}
}

// update diffs against the authoritative record rather than the analytic
// copy, which may lag behind it.
func (c *Controller) update(ctx context.Context, p *pass, stale, expected *models.DeficientItem) {
	di, loc, err := c.repo.Get(ctx, stale.Ref())
	if err != nil {
		c.fail(ctx, p, "update", stale, err)
		return
	}
	if loc != models.LocationActive {
		c.revive(ctx, p, di, expected)
		return
	}
	delta := c.syncer.Diff(expected, di)
	if delta.IsEmpty() {
		p.report.Skipped++
		return
	}
	if err := delta.Apply(di); err != nil {
		c.fail(ctx, p, "update", di, dErrors.Wrap(err, dErrors.CodeInternal, "apply proxy delta"))
		return
	}
	di.UpdatedAt = c.now().Unix()
	if err := c.repo.Update(ctx, di.Property, di.ID, di); err != nil {
		c.fail(ctx, p, "update", di, err)
		return
	}
	p.report.Updated++
}

// revive handles a match the analytic copy still lists as active although
// its record was already archived. The copy is re-sent first so the archived
// record stops matching, then the expected item gets a new record.
func (c *Controller) revive(ctx context.Context, p *pass, archived, expected *models.DeficientItem) {
	if _, err := c.repo.ToggleArchive(ctx, archived.Ref(), true); err != nil {
		c.fail(ctx, p, "archive", archived, err)
		return
	}
	c.create(ctx, p, archived.Property, expected)
}

func (c *Controller) create(ctx context.Context, p *pass, propertyID string, expected *models.DeficientItem) {
	id, err := c.repo.Create(ctx, propertyID, expected)
	if err != nil {
		c.fail(ctx, p, "create", expected, err)
		return
	}
	p.report.Created++
	c.publish(ctx, models.Ref{PropertyID: propertyID, ID: id}, expected.State)
}

// fail logs an item failure. Unclassified errors are kept for the caller.
func (c *Controller) fail(ctx context.Context, p *pass, op string, di *models.DeficientItem, err error) {
	p.report.Failed++
	c.metrics.IncrementItemFailure(op)
	c.logger.WarnContext(ctx, "deficient item "+op+" failed",
		"property_id", di.Property,
		"inspection_id", di.Inspection,
		"item_id", di.Item,
		"deficient_item_id", di.ID,
		"code", dErrors.CodeOf(err),
		"error", err,
	)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		p.fatal = append(p.fatal, err)
	}
}

func (c *Controller) publish(ctx context.Context, ref models.Ref, state string) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishStateChange(ctx, ref, state); err != nil {
		c.logger.WarnContext(ctx, "status publish failed",
			"property_id", ref.PropertyID,
			"deficient_item_id", ref.ID,
			"error", err,
		)
	}
}

func (c *Controller) recompute(ctx context.Context, propertyID string) {
	if c.aggregator == nil || propertyID == "" {
		return
	}
	if _, err := c.aggregator.Recompute(ctx, propertyID); err != nil {
		c.logger.WarnContext(ctx, "property metadata recompute failed",
			"property_id", propertyID,
			"error", err,
		)
	}
}
