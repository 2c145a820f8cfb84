// Package sweep advances deficient item states as due dates approach and pass.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"propcheck/internal/deficiency/metrics"
	"propcheck/internal/deficiency/models"
	"propcheck/internal/platform/config"
	"propcheck/internal/property/metadata"
	dErrors "propcheck/pkg/domain-errors"
	"propcheck/pkg/platform/sentinel"
)

var tracer = otel.Tracer("propcheck/internal/deficiency/sweep")

const defaultConcurrency = 4

// Evaluate returns the state di should move to at now (unix seconds). It
// reports false when di stays where it is, so re-evaluating an item that
// already transitioned is a no-op. Items without a due date never move.
func Evaluate(di *models.DeficientItem, now int64, rules *config.Rules) (string, bool) {
	due, start := di.CurrentDueDate, di.CurrentStartDate
	if due == 0 {
		return "", false
	}
	next := ""
	switch {
	case rules.IsOverdueEligible(di.State) && now >= due:
		next = models.StateOverdue
	case di.State == models.StatePending && start > 0:
		span := due - start
		if span >= int64(rules.ProgressUpdateThreshold/time.Second) && due-now < span/2 {
			next = models.StateRequiresProgressUpdate
		}
	}
	if next == "" || next == di.State {
		return "", false
	}
	return next, true
}

type Repository interface {
	ListPropertiesWithStates(ctx context.Context, states []string) ([]string, error)
	FindByStates(ctx context.Context, propertyID string, states []string) ([]*models.DeficientItem, error)
	Get(ctx context.Context, ref models.Ref) (*models.DeficientItem, models.Location, error)
	Update(ctx context.Context, propertyID, id string, di *models.DeficientItem) error
}

type StatusPublisher interface {
	PublishStateChange(ctx context.Context, ref models.Ref, state string) error
}

type MetadataRecomputer interface {
	Recompute(ctx context.Context, propertyID string) (metadata.Updates, error)
}

// Report sums one sweep over all properties.
type Report struct {
	Properties   int
	Evaluated    int
	Transitioned int
	Failed       int
}

func (r *Report) add(o Report) {
	r.Properties += o.Properties
	r.Evaluated += o.Evaluated
	r.Transitioned += o.Transitioned
	r.Failed += o.Failed
}

// Sweeper runs properties in parallel and the items of one property in order.
type Sweeper struct {
	repo        Repository
	rules       *config.Rules
	publisher   StatusPublisher
	aggregator  MetadataRecomputer
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func WithPublisher(p StatusPublisher) Option {
	return func(s *Sweeper) {
		s.publisher = p
	}
}

func WithAggregator(a MetadataRecomputer) Option {
	return func(s *Sweeper) {
		s.aggregator = a
	}
}

// WithConcurrency bounds how many properties are swept at once.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func New(repo Repository, rules *config.Rules, opts ...Option) (*Sweeper, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if rules == nil {
		return nil, fmt.Errorf("rules are required")
	}
	s := &Sweeper{
		repo:        repo,
		rules:       rules,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// candidateStates are the states Evaluate can move an item out of.
func (s *Sweeper) candidateStates() []string {
	states := slices.Clone(s.rules.OverdueEligibleStates)
	if !slices.Contains(states, models.StatePending) {
		states = append(states, models.StatePending)
	}
	return states
}

// Run sweeps every property holding a candidate item. A failing property or
// item is logged and counted without stopping the rest.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "sweep.Run")
	defer span.End()
	defer s.metrics.ObserveSweep(start)

	now := s.now().Unix()
	states := s.candidateStates()
	properties, err := s.repo.ListPropertiesWithStates(ctx, states)
	if err != nil {
		span.RecordError(err)
		return Report{}, fmt.Errorf("list sweep properties: %w", err)
	}

	var (
		mu    sync.Mutex
		total Report
		g     errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, propertyID := range properties {
		g.Go(func() error {
			r := s.sweepProperty(ctx, propertyID, states, now)
			mu.Lock()
			total.add(r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("sweep.properties", total.Properties),
		attribute.Int("sweep.transitioned", total.Transitioned),
		attribute.Int("sweep.failed", total.Failed),
	)
	s.logger.InfoContext(ctx, "overdue sweep finished",
		"properties", total.Properties,
		"evaluated", total.Evaluated,
		"transitioned", total.Transitioned,
		"failed", total.Failed,
		"duration", time.Since(start),
	)
	return total, nil
}

func (s *Sweeper) sweepProperty(ctx context.Context, propertyID string, states []string, now int64) Report {
	ctx, span := tracer.Start(ctx, "sweep.property")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", propertyID))

	report := Report{Properties: 1}
	items, err := s.repo.FindByStates(ctx, propertyID, states)
	if err != nil {
		report.Failed++
		s.logger.WarnContext(ctx, "load sweep candidates failed",
			"property_id", propertyID,
			"error", err,
		)
		return report
	}

	rollupChanged := false
	for _, candidate := range items {
		report.Evaluated++
		changed, err := s.advance(ctx, candidate, now)
		if err != nil {
			report.Failed++
			s.logger.WarnContext(ctx, "sweep transition failed",
				"property_id", propertyID,
				"deficient_item_id", candidate.ID,
				"code", dErrors.CodeOf(err),
				"partial", errors.Is(err, sentinel.ErrPartialWrite),
				"error", err,
			)
		}
		if changed != nil {
			report.Transitioned++
			rollupChanged = rollupChanged || changed.rollup
		}
	}

	if rollupChanged && s.aggregator != nil {
		if _, err := s.aggregator.Recompute(ctx, propertyID); err != nil {
			s.logger.WarnContext(ctx, "property metadata recompute failed",
				"property_id", propertyID,
				"error", err,
			)
		}
	}
	return report
}

type transition struct {
	rollup bool
}

// advance reloads the authoritative record of candidate and applies its
// transition, if any. Records archived since the candidate query are left
// alone. A transition whose analytic write failed is still published and
// returned alongside the error; the next sweep finds the lagging copy by
// its old state and re-sends it.
func (s *Sweeper) advance(ctx context.Context, candidate *models.DeficientItem, now int64) (*transition, error) {
	ref := candidate.Ref()
	di, loc, err := s.repo.Get(ctx, ref)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if loc != models.LocationActive {
		return nil, nil
	}
	next, ok := Evaluate(di, now, s.rules)
	if !ok {
		if candidate.State == di.State {
			return nil, nil
		}
		return s.resend(ctx, di, candidate.State)
	}

	prevClass := s.rules.RollupClass(di.State)
	di.TransitionTo(next, now, "")
	err = s.repo.Update(ctx, ref.PropertyID, ref.ID, di)
	switch {
	case err == nil, errors.Is(err, sentinel.ErrPartialWrite):
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// archived between read and write; archive wins
		return nil, nil
	default:
		return nil, err
	}

	s.metrics.IncrementSweepTransition(next)
	s.publish(ctx, ref, next)
	return &transition{rollup: prevClass != s.rules.RollupClass(next)}, err
}

// resend rewrites di unchanged when the analytic copy still shows an
// earlier state, and publishes the stored state again.
func (s *Sweeper) resend(ctx context.Context, di *models.DeficientItem, lagging string) (*transition, error) {
	if err := s.repo.Update(ctx, di.Property, di.ID, di); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "lagging deficient item copy re-sent",
		"property_id", di.Property,
		"deficient_item_id", di.ID,
		"state", di.State,
		"lagging_state", lagging,
	)
	s.publish(ctx, di.Ref(), di.State)
	return &transition{rollup: s.rules.RollupClass(lagging) != s.rules.RollupClass(di.State)}, nil
}

func (s *Sweeper) publish(ctx context.Context, ref models.Ref, state string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStateChange(ctx, ref, state); err != nil {
		s.logger.WarnContext(ctx, "status publish failed",
			"property_id", ref.PropertyID,
			"deficient_item_id", ref.ID,
			"error", err,
		)
	}
}
