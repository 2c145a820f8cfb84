// Package ticketboard keeps the external card attached to a deficient item in
// step with its archive state.
package ticketboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"propcheck/internal/deficiency/models"
	dErrors "propcheck/pkg/domain-errors"
	"propcheck/pkg/platform/circuit"
	"propcheck/pkg/platform/sentinel"
)

// CardAPI is the remote card surface.
type CardAPI interface {
	ArchiveCard(ctx context.Context, cardID string) error
	RestoreCard(ctx context.Context, cardID string) error
}

// CardStore maps deficient items to their card ids.
type CardStore interface {
	FindCard(ctx context.Context, ref models.Ref) (string, error)
}

// Service archives and restores cards through a circuit breaker.
type Service struct {
	api     CardAPI
	cards   CardStore
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

func New(api CardAPI, cards CardStore, opts ...Option) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("card api is required")
	}
	if cards == nil {
		return nil, fmt.Errorf("card store is required")
	}
	s := &Service{
		api:     api,
		cards:   cards,
		breaker: circuit.New("ticketboard"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SyncArchive archives or restores the card linked to ref and returns its id.
// It returns "" with a nil error when ref has no card.
func (s *Service) SyncArchive(ctx context.Context, ref models.Ref, archived bool) (string, error) {
	cardID, err := s.cards.FindCard(ctx, ref)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeExternal, "lookup ticket board card")
	}

	if !s.breaker.Allow() {
		return "", dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeExternal, "ticket board circuit open")
	}

	if archived {
		err = s.api.ArchiveCard(ctx, cardID)
	} else {
		err = s.api.RestoreCard(ctx, cardID)
	}
	s.record(err)
	if err != nil {
		return "", err
	}
	return cardID, nil
}

// record feeds the breaker. An already removed card is a healthy answer.
func (s *Service) record(err error) {
	if err == nil || dErrors.HasCode(err, dErrors.CodeAlreadyRemoved) {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.Info("ticket board circuit closed")
		}
		return
	}
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.Warn("ticket board circuit opened", "error", err)
	}
}
