package hire

import (
	"context"

	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
)

// Store opens the transactions a hire runs in.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the unit of work a single hire attempt mutates records through.
//
// GetBid reports bid.ErrNotFound and GetGig gig.ErrNotFound for absent
// rows. UpdateGigStatus reports gig.ErrStatusMismatch when the gig is no
// longer in expected; the caller then aborts. Errors that may succeed on a
// fresh transaction are wrapped with ErrTransient.
type Tx interface {
	GetBid(ctx context.Context, id string) (bid.Bid, error)
	GetGig(ctx context.Context, id string) (gig.Gig, error)
	UpdateBidStatus(ctx context.Context, id string, status bid.Status) (bid.Bid, error)
	UpdateManyBidStatus(ctx context.Context, gigID, excludeID string, next, where bid.Status) (int64, error)
	UpdateGigStatus(ctx context.Context, id string, next, expected gig.Status) (gig.Gig, error)
	EnqueueOutbox(ctx context.Context, topic string, payload map[string]any) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}
