package lifecycle_test

//go:generate mockgen -source=controller.go -destination=mocks/mocks.go -package=mocks StatusPublisher,MetadataRecomputer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"propcheck/internal/deficiency/derive"
	"propcheck/internal/deficiency/lifecycle"
	"propcheck/internal/deficiency/lifecycle/mocks"
	"propcheck/internal/deficiency/models"
	"propcheck/internal/deficiency/proxy"
	"propcheck/internal/deficiency/repository"
	"propcheck/internal/deficiency/store/analytic"
	"propcheck/internal/deficiency/store/operational"
	inspection "propcheck/internal/inspection/models"
	"propcheck/internal/platform/config"
	dErrors "propcheck/pkg/domain-errors"
	"propcheck/pkg/platform/sentinel"
)

// failingCreates fails Create for the listed inspection items.
type failingCreates struct {
	*repository.Repository
	items map[string]error
}

func (f *failingCreates) Create(ctx context.Context, propertyID string, di *models.DeficientItem) (string, error) {
	if err, ok := f.items[di.Item]; ok {
		return "", err
	}
	return f.Repository.Create(ctx, propertyID, di)
}

// flakyAnalytic fails Upsert while failing is set.
type flakyAnalytic struct {
	*analytic.InMemoryStore
	failing bool
}

func (f *flakyAnalytic) Upsert(ctx context.Context, di *models.DeficientItem) error {
	if f.failing {
		return errors.New("analytic store unavailable")
	}
	return f.InMemoryStore.Upsert(ctx, di)
}

type ControllerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	publisher  *mocks.MockStatusPublisher
	aggregator *mocks.MockMetadataRecomputer
	repo       *failingCreates
	analytic   *flakyAnalytic
	controller *lifecycle.Controller
	now        time.Time
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockStatusPublisher(s.ctrl)
	s.aggregator = mocks.NewMockMetadataRecomputer(s.ctrl)
	s.now = time.Unix(1_700_000_000, 0)

	seq := 0
	s.analytic = &flakyAnalytic{InMemoryStore: analytic.NewInMemory()}
	repo, err := repository.New(operational.NewInMemory(), s.analytic,
		repository.WithClock(func() time.Time { return s.now }),
		repository.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("di-%d", seq)
		}),
	)
	s.Require().NoError(err)
	s.repo = &failingCreates{Repository: repo, items: map[string]error{}}

	rules := config.DefaultRules()
	engine, err := derive.New(rules)
	s.Require().NoError(err)
	syncer, err := proxy.New(rules)
	s.Require().NoError(err)

	controller, err := lifecycle.New(s.repo, engine, syncer,
		lifecycle.WithPublisher(s.publisher),
		lifecycle.WithAggregator(s.aggregator),
		lifecycle.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.controller = controller
}

func (s *ControllerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func score(v float64) *float64 { return &v }

func item(id, title string, selection int) *inspection.Item {
	return &inspection.Item{
		ID:                 id,
		Title:              title,
		MainInputType:      "twoactions_checkmarkx",
		MainInputSelection: selection,
		MainInputZeroValue: score(0),
		MainInputOneValue:  score(55),
	}
}

func completed(items ...*inspection.Item) *inspection.Inspection {
	tmpl := &inspection.Template{TrackDeficientItems: true, Items: map[string]*inspection.Item{}}
	for _, it := range items {
		tmpl.Items[it.ID] = it
	}
	return &inspection.Inspection{
		ID:                  "insp-1",
		Property:            "prop-1",
		InspectionCompleted: true,
		UpdatedLastDate:     1_600_000_000,
		Template:            tmpl,
	}
}

func write(after *inspection.Inspection) inspection.WriteEvent {
	return inspection.WriteEvent{InspectionID: "insp-1", After: after}
}

func (s *ControllerSuite) expectPublishes(n int) {
	s.publisher.EXPECT().
		PublishStateChange(gomock.Any(), gomock.Any(), models.StateRequiresAction).
		Return(nil).Times(n)
}

func (s *ControllerSuite) expectRecompute() {
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, nil)
}

func (s *ControllerSuite) live() []*models.DeficientItem {
	items, err := s.repo.FindAllByInspection(context.Background(), "insp-1")
	s.Require().NoError(err)
	return items
}

// =============================================================================
// Inspection writes
// =============================================================================

func (s *ControllerSuite) TestCreatesOneItemPerDeficientInspectionItem() {
	s.expectPublishes(2)
	s.expectRecompute()

	report, err := s.controller.HandleInspectionWrite(context.Background(), write(completed(
		item("a", "Railing", 1),
		item("b", "Gutter", 1),
		item("c", "Door", 0),
	)))
	s.Require().NoError(err)
	s.Equal(lifecycle.Report{Created: 2}, report)

	items := s.live()
	s.Require().Len(items, 2)
	s.Equal(55.0, items[0].ItemScore)
	s.Equal(models.StateRequiresAction, items[0].State)
}

func (s *ControllerSuite) TestRedeliveredWriteChangesNothing() {
	insp := completed(item("a", "Railing", 1))
	s.expectPublishes(1)
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, nil).Times(2)

	_, err := s.controller.HandleInspectionWrite(context.Background(), write(insp))
	s.Require().NoError(err)
	report, err := s.controller.HandleInspectionWrite(context.Background(), write(insp))
	s.Require().NoError(err)
	s.Equal(lifecycle.Report{Skipped: 1}, report)
}

func (s *ControllerSuite) TestArchivesUpdatesAndCreates() {
	ctx := context.Background()
	s.expectPublishes(3)
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, nil).Times(2)

	_, err := s.controller.HandleInspectionWrite(ctx, write(completed(
		item("a", "Railing", 1),
		item("b", "Gutter", 1),
	)))
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	report, err := s.controller.HandleInspectionWrite(ctx, write(completed(
		item("a", "Railing", 0),
		item("b", "Gutter, north side", 1),
		item("c", "Window", 1),
	)))
	s.Require().NoError(err)
	s.Equal(lifecycle.Report{Archived: 1, Updated: 1, Created: 1}, report)

	byItem := map[string]*models.DeficientItem{}
	for _, di := range s.live() {
		byItem[di.Item] = di
	}
	s.Require().Len(byItem, 2)
	s.Equal("Gutter, north side", byItem["b"].ItemTitle)
	s.Equal(s.now.Unix(), byItem["b"].UpdatedAt)
	s.Contains(byItem, "c")
}

func (s *ControllerSuite) TestStoredScoreSurvivesLostMapping() {
	ctx := context.Background()
	s.expectPublishes(1)
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, nil).Times(2)

	_, err := s.controller.HandleInspectionWrite(ctx, write(completed(item("a", "Railing", 1))))
	s.Require().NoError(err)

	unmapped := item("a", "Railing (rusted)", 1)
	unmapped.MainInputOneValue = nil
	_, err = s.controller.HandleInspectionWrite(ctx, write(completed(unmapped)))
	s.Require().NoError(err)

	items := s.live()
	s.Require().Len(items, 1)
	s.Equal(55.0, items[0].ItemScore)
	s.Equal("Railing (rusted)", items[0].ItemTitle)
}

func (s *ControllerSuite) TestDeletedInspectionArchivesEverything() {
	ctx := context.Background()
	insp := completed(item("a", "Railing", 1), item("b", "Gutter", 1))
	s.expectPublishes(2)
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, nil).Times(2)

	_, err := s.controller.HandleInspectionWrite(ctx, write(insp))
	s.Require().NoError(err)

	report, err := s.controller.HandleInspectionWrite(ctx, inspection.WriteEvent{InspectionID: "insp-1", Before: insp})
	s.Require().NoError(err)
	s.Equal(lifecycle.Report{Archived: 2}, report)
	s.Empty(s.live())
}

func (s *ControllerSuite) TestUntrackedInspectionIsIgnored() {
	tests := map[string]func(*inspection.Inspection){
		"incomplete":        func(i *inspection.Inspection) { i.InspectionCompleted = false },
		"no template":       func(i *inspection.Inspection) { i.Template = nil },
		"tracking disabled": func(i *inspection.Inspection) { i.Template.TrackDeficientItems = false },
	}
	for name, mutate := range tests {
		s.Run(name, func() {
			insp := completed(item("a", "Railing", 1))
			mutate(insp)
			report, err := s.controller.HandleInspectionWrite(context.Background(), write(insp))
			s.Require().NoError(err)
			s.Equal(lifecycle.Report{}, report)
		})
	}
	s.Empty(s.live())
}

func (s *ControllerSuite) TestItemFailuresAreIsolated() {
	ctx := context.Background()
	s.repo.items["a"] = dErrors.New(dErrors.CodeConflict, "already exists")
	s.expectPublishes(1)
	s.expectRecompute()

	report, err := s.controller.HandleInspectionWrite(ctx, write(completed(
		item("a", "Railing", 1),
		item("b", "Gutter", 1),
	)))
	s.Require().NoError(err, "classified failures are not redelivered")
	s.Equal(lifecycle.Report{Created: 1, Failed: 1}, report)
}

func (s *ControllerSuite) TestUnclassifiedFailuresPropagateAfterTheLoop() {
	ctx := context.Background()
	s.repo.items["a"] = errors.New("connection reset")
	s.expectPublishes(1)

	report, err := s.controller.HandleInspectionWrite(ctx, write(completed(
		item("a", "Railing", 1),
		item("b", "Gutter", 1),
	)))
	s.Error(err)
	s.Equal(lifecycle.Report{Created: 1, Failed: 1}, report, "sibling items still processed")
}

func (s *ControllerSuite) TestItemDeficientAgainAfterPartialArchive() {
	ctx := context.Background()
	s.expectPublishes(2)
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, nil).Times(2)

	_, err := s.controller.HandleInspectionWrite(ctx, write(completed(item("a", "Railing", 1))))
	s.Require().NoError(err)
	original := s.live()[0].ID

	s.analytic.failing = true
	_, err = s.controller.HandleInspectionWrite(ctx, write(completed(item("a", "Railing", 0))))
	s.Require().ErrorIs(err, sentinel.ErrPartialWrite, "write is redelivered")
	s.Len(s.live(), 1, "analytic copy still lists the archived record")

	s.analytic.failing = false
	s.now = s.now.Add(time.Hour)
	report, err := s.controller.HandleInspectionWrite(ctx, write(completed(item("a", "Railing", 1))))
	s.Require().NoError(err)
	s.Equal(lifecycle.Report{Created: 1}, report)

	items := s.live()
	s.Require().Len(items, 1)
	s.NotEqual(original, items[0].ID)
	_, loc, err := s.repo.Get(ctx, items[0].Ref())
	s.Require().NoError(err)
	s.Equal(models.LocationActive, loc)
}

func (s *ControllerSuite) TestRedeliveredArchiveHealsAnalyticCopy() {
	ctx := context.Background()
	s.expectPublishes(1)
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, nil).Times(2)

	_, err := s.controller.HandleInspectionWrite(ctx, write(completed(item("a", "Railing", 1))))
	s.Require().NoError(err)

	resolved := write(completed(item("a", "Railing", 0)))
	s.analytic.failing = true
	_, err = s.controller.HandleInspectionWrite(ctx, resolved)
	s.Require().Error(err)

	s.analytic.failing = false
	report, err := s.controller.HandleInspectionWrite(ctx, resolved)
	s.Require().NoError(err)
	s.Equal(lifecycle.Report{}, report, "record was already archived")
	s.Empty(s.live())
}

func (s *ControllerSuite) TestPublishFailureIsTolerated() {
	s.publisher.EXPECT().PublishStateChange(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("broker down"))
	s.aggregator.EXPECT().Recompute(gomock.Any(), "prop-1").Return(nil, errors.New("metadata down"))

	report, err := s.controller.HandleInspectionWrite(context.Background(), write(completed(item("a", "Railing", 1))))
	s.Require().NoError(err)
	s.Equal(1, report.Created)
}

// =============================================================================
// Archive requests
// =============================================================================

func (s *ControllerSuite) TestHandleArchiveRequest() {
	ctx := context.Background()
	s.expectPublishes(1)
	s.expectRecompute()
	_, err := s.controller.HandleInspectionWrite(ctx, write(completed(item("a", "Railing", 1))))
	s.Require().NoError(err)
	id := s.live()[0].ID

	req := lifecycle.ArchiveRequest{PropertyID: "prop-1", DeficientItemID: id, Archive: true}
	s.expectRecompute()
	result, err := s.controller.HandleArchiveRequest(ctx, req)
	s.Require().NoError(err)
	s.True(result.Changed)

	result, err = s.controller.HandleArchiveRequest(ctx, req)
	s.Require().NoError(err)
	s.False(result.Changed, "repeated request is a no-op and skips the recompute")

	_, err = s.controller.HandleArchiveRequest(ctx, lifecycle.ArchiveRequest{PropertyID: "prop-1"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.controller.HandleArchiveRequest(ctx, lifecycle.ArchiveRequest{PropertyID: "prop-1", DeficientItemID: "nope"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
