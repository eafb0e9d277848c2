package bid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yash9140/GigFlow/gig"
)

var (
	ErrInvalidInput = errors.New("bid: invalid input")
	ErrGigClosed    = errors.New("bid: gig is not open for bidding")
	ErrOwnGig       = errors.New("bid: cannot bid on your own gig")
	ErrForbidden    = errors.New("bid: only the gig owner can view its bids")
)

// GigReader is the slice of the gig repository the bid flow depends on.
type GigReader interface {
	GetByID(ctx context.Context, id string) (gig.Listing, error)
}

type Service struct {
	repo        Repository
	gigs        GigReader
	idGenerator func() string
}

func NewService(repo Repository, gigs GigReader) *Service {
	return &Service{
		repo:        repo,
		gigs:        gigs,
		idGenerator: func() string { return uuid.NewString() },
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// Submit places a pending bid for params.FreelancerID on an open gig.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Bid, error) {
	proposal := strings.TrimSpace(params.Proposal)
	if params.GigID == "" || params.FreelancerID == "" || proposal == "" {
		return Bid{}, fmt.Errorf("%w: gig, freelancer and proposal are required", ErrInvalidInput)
	}
	if params.Amount <= 0 {
		return Bid{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	target, err := s.gigs.GetByID(ctx, params.GigID)
	if err != nil {
		return Bid{}, err
	}
	if target.Status != gig.StatusOpen {
		return Bid{}, ErrGigClosed
	}
	if target.ClientID == params.FreelancerID {
		return Bid{}, ErrOwnGig
	}

	return s.repo.Create(ctx, Bid{
		ID:           s.idGenerator(),
		GigID:        params.GigID,
		FreelancerID: params.FreelancerID,
		Amount:       params.Amount,
		Proposal:     proposal,
		Status:       StatusPending,
	})
}

// ListForGig returns every bid on gigID; only the gig's owner may call it.
func (s *Service) ListForGig(ctx context.Context, actorID, gigID string) ([]GigBid, error) {
	target, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if target.ClientID != actorID {
		return nil, ErrForbidden
	}
	return s.repo.ListForGig(ctx, gigID)
}

func (s *Service) ListForFreelancer(ctx context.Context, freelancerID string) ([]FreelancerBid, error) {
	return s.repo.ListForFreelancer(ctx, freelancerID)
}
