package gig

import "time"

type Status string

const (
	StatusOpen     Status = "open"
	StatusAssigned Status = "assigned"
)

// Gig mirrors the gigs table.
type Gig struct {
	ID          string
	Title       string
	Description string
	Budget      float64
	Status      Status
	ClientID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Listing is a gig joined with the public profile of its client.
type Listing struct {
	Gig
	ClientName  string
	ClientEmail string
}

type CreateParams struct {
	ClientID    string
	Title       string
	Description string
	Budget      float64
}

type Filters struct {
	Search   string
	Status   Status
	ClientID string
	// AnyStatus disables the default open-only filter.
	AnyStatus bool
}
