package gig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("gig: invalid input")

type Service struct {
	repo        Repository
	idGenerator func() string
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// Create posts a new open gig owned by params.ClientID.
func (s *Service) Create(ctx context.Context, params CreateParams) (Gig, error) {
	if params.ClientID == "" {
		return Gig{}, fmt.Errorf("%w: missing client id", ErrInvalidInput)
	}
	title := strings.TrimSpace(params.Title)
	description := strings.TrimSpace(params.Description)
	if title == "" || description == "" {
		return Gig{}, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if params.Budget < 0 {
		return Gig{}, fmt.Errorf("%w: budget must not be negative", ErrInvalidInput)
	}

	return s.repo.Create(ctx, Gig{
		ID:          s.idGenerator(),
		Title:       title,
		Description: description,
		Budget:      params.Budget,
		Status:      StatusOpen,
		ClientID:    params.ClientID,
	})
}

// List returns open gigs by default, newest first.
func (s *Service) List(ctx context.Context, filters Filters) ([]Listing, error) {
	return s.repo.List(ctx, filters)
}

// ListForClient returns every gig the client posted regardless of status.
func (s *Service) ListForClient(ctx context.Context, clientID string) ([]Listing, error) {
	return s.repo.List(ctx, Filters{ClientID: clientID, AnyStatus: true})
}

func (s *Service) Get(ctx context.Context, id string) (Listing, error) {
	return s.repo.GetByID(ctx, id)
}
