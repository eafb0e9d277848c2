package bid

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusHired    Status = "hired"
	StatusRejected Status = "rejected"
)

// Bid represents a freelancer's proposal against a gig.
type Bid struct {
	ID           string
	GigID        string
	FreelancerID string
	Amount       float64
	Proposal     string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GigBid is a bid as seen by the gig owner, with the bidder's profile.
type GigBid struct {
	Bid
	FreelancerName  string
	FreelancerEmail string
}

// FreelancerBid is a bid as seen by its author, with the gig it targets.
type FreelancerBid struct {
	Bid
	GigTitle  string
	GigBudget float64
	GigStatus string
}

// SubmitParams enumerates the fields required to place a bid.
type SubmitParams struct {
	GigID        string
	FreelancerID string
	Amount       float64
	Proposal     string
}
