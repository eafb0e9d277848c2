package hire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/db"
	"github.com/yash9140/GigFlow/gig"
)

// TopicGigAssigned is the outbox topic written by every committed hire.
const TopicGigAssigned = "gig.assigned"

const hiredBidIndex = "bids_one_hired_per_gig"

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PGStore runs hires in SERIALIZABLE PostgreSQL transactions.
type PGStore struct {
	pool TxBeginner
	gigs *gig.PGRepository
	bids *bid.PGRepository
}

func NewPGStore(pool TxBeginner) *PGStore {
	return &PGStore{
		pool: pool,
		gigs: gig.NewRepository(nil),
		bids: bid.NewRepository(nil),
	}
}

func (s *PGStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, classify("begin tx", err)
	}
	return &pgTx{tx: tx, gigs: s.gigs, bids: s.bids}, nil
}

type pgTx struct {
	tx   pgx.Tx
	gigs *gig.PGRepository
	bids *bid.PGRepository
}

func (t *pgTx) GetBid(ctx context.Context, id string) (bid.Bid, error) {
	b, err := t.bids.GetByID(ctx, t.tx, id)
	if err != nil && !errors.Is(err, bid.ErrNotFound) {
		return bid.Bid{}, classify("load bid", err)
	}
	return b, err
}

// GetGig locks the gig row; concurrent hires of the same gig queue here.
func (t *pgTx) GetGig(ctx context.Context, id string) (gig.Gig, error) {
	g, err := t.gigs.GetForUpdate(ctx, t.tx, id)
	if err != nil && !errors.Is(err, gig.ErrNotFound) {
		return gig.Gig{}, classify("lock gig", err)
	}
	return g, err
}

func (t *pgTx) UpdateBidStatus(ctx context.Context, id string, status bid.Status) (bid.Bid, error) {
	b, err := t.bids.UpdateStatus(ctx, t.tx, id, status)
	if err != nil {
		if db.IsUniqueViolation(err) && db.ConstraintName(err) == hiredBidIndex {
			return bid.Bid{}, gig.ErrStatusMismatch
		}
		return bid.Bid{}, classify("mark bid", err)
	}
	return b, nil
}

func (t *pgTx) UpdateManyBidStatus(ctx context.Context, gigID, excludeID string, next, where bid.Status) (int64, error) {
	n, err := t.bids.UpdateManyStatus(ctx, t.tx, gigID, excludeID, next, where)
	if err != nil {
		return 0, classify("reject siblings", err)
	}
	return n, nil
}

func (t *pgTx) UpdateGigStatus(ctx context.Context, id string, next, expected gig.Status) (gig.Gig, error) {
	g, err := t.gigs.UpdateStatus(ctx, t.tx, id, next, expected)
	if err != nil && !errors.Is(err, gig.ErrStatusMismatch) {
		return gig.Gig{}, classify("assign gig", err)
	}
	return g, err
}

func (t *pgTx) EnqueueOutbox(ctx context.Context, topic string, payload map[string]any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("hire: marshal outbox payload: %w", err)
	}
	const insertSQL = `
INSERT INTO outbox (topic, payload)
VALUES ($1, $2);
`
	if _, err := t.tx.Exec(ctx, insertSQL, topic, payloadBytes); err != nil {
		return classify("insert outbox message", err)
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

func (t *pgTx) Abort(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("hire: rollback: %w", err)
	}
	return nil
}

func classify(op string, err error) error {
	if db.IsRetryable(err) {
		return fmt.Errorf("hire: %s: %w: %w", op, ErrTransient, err)
	}
	return fmt.Errorf("hire: %s: %w", op, err)
}
