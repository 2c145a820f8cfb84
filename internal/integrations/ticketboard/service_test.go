package ticketboard_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CardAPI,CardStore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"propcheck/internal/deficiency/models"
	"propcheck/internal/integrations/ticketboard"
	"propcheck/internal/integrations/ticketboard/mocks"
	dErrors "propcheck/pkg/domain-errors"
	"propcheck/pkg/platform/circuit"
	"propcheck/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	api     *mocks.MockCardAPI
	cards   *ticketboard.InMemoryCardStore
	now     time.Time
	service *ticketboard.Service
	ref     models.Ref
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.api = mocks.NewMockCardAPI(s.ctrl)
	s.cards = ticketboard.NewInMemoryCardStore()
	s.now = time.Unix(1_700_000_000, 0)
	s.ref = models.Ref{PropertyID: "prop-1", ID: "di-1"}

	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return s.now }),
	)
	svc, err := ticketboard.New(s.api, s.cards, ticketboard.WithBreaker(breaker))
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// =============================================================================
// SyncArchive
// =============================================================================

func (s *ServiceSuite) TestSyncArchive() {
	ctx := context.Background()

	s.Run("no linked card is a no-op", func() {
		cardID, err := s.service.SyncArchive(ctx, s.ref, true)
		s.Require().NoError(err)
		s.Empty(cardID)
	})

	s.Require().NoError(s.cards.SaveCard(ctx, s.ref, "card-1"))

	s.Run("archive returns the card id", func() {
		s.api.EXPECT().ArchiveCard(gomock.Any(), "card-1").Return(nil)
		cardID, err := s.service.SyncArchive(ctx, s.ref, true)
		s.Require().NoError(err)
		s.Equal("card-1", cardID)
	})

	s.Run("restore calls the restore endpoint", func() {
		s.api.EXPECT().RestoreCard(gomock.Any(), "card-1").Return(nil)
		cardID, err := s.service.SyncArchive(ctx, s.ref, false)
		s.Require().NoError(err)
		s.Equal("card-1", cardID)
	})

	s.Run("already removed card surfaces its code", func() {
		s.api.EXPECT().ArchiveCard(gomock.Any(), "card-1").
			Return(dErrors.New(dErrors.CodeAlreadyRemoved, "gone"))
		_, err := s.service.SyncArchive(ctx, s.ref, true)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRemoved))
	})
}

func (s *ServiceSuite) TestBreakerOpensAfterRepeatedFailures() {
	ctx := context.Background()
	s.Require().NoError(s.cards.SaveCard(ctx, s.ref, "card-1"))

	boom := dErrors.Wrap(errors.New("connection refused"), dErrors.CodeExternal, "call ticket board")
	s.api.EXPECT().ArchiveCard(gomock.Any(), "card-1").Return(boom).Times(2)

	for i := 0; i < 2; i++ {
		_, err := s.service.SyncArchive(ctx, s.ref, true)
		s.Error(err)
	}

	_, err := s.service.SyncArchive(ctx, s.ref, true)
	s.ErrorIs(err, sentinel.ErrUnavailable, "open breaker short-circuits without calling the api")

	s.now = s.now.Add(2 * time.Minute)
	s.api.EXPECT().ArchiveCard(gomock.Any(), "card-1").Return(nil)
	cardID, err := s.service.SyncArchive(ctx, s.ref, true)
	s.Require().NoError(err)
	s.Equal("card-1", cardID)
}

func (s *ServiceSuite) TestCardLookupFailure() {
	store := mocks.NewMockCardStore(s.ctrl)
	svc, err := ticketboard.New(s.api, store)
	s.Require().NoError(err)

	store.EXPECT().FindCard(gomock.Any(), s.ref).Return("", errors.New("redis down"))
	_, err = svc.SyncArchive(context.Background(), s.ref, true)
	s.Equal(dErrors.CodeExternal, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestNewRejectsNilDependencies() {
	_, err := ticketboard.New(nil, s.cards)
	s.Error(err)
	_, err = ticketboard.New(s.api, nil)
	s.Error(err)
}
