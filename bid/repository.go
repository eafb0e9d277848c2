package bid

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yash9140/GigFlow/db"
	"github.com/yash9140/GigFlow/gig"
)

var (
	ErrNotFound     = errors.New("bid: not found")
	ErrDuplicateBid = errors.New("bid: already placed a bid on this gig")
)

type Repository interface {
	Create(ctx context.Context, b Bid) (Bid, error)
	ListForGig(ctx context.Context, gigID string) ([]GigBid, error)
	ListForFreelancer(ctx context.Context, freelancerID string) ([]FreelancerBid, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const bidColumns = `b.id, b.gig_id, b.freelancer_id, b.amount, b.proposal, b.status, b.created_at, b.updated_at`

const createAttempts = 3

// Create inserts b while holding a share lock on an open gig. The insert
// runs SERIALIZABLE so it cannot interleave with a hire on the same gig: one
// side aborts and the retry observes the other's result.
func (r *PGRepository) Create(ctx context.Context, b Bid) (Bid, error) {
	var (
		created Bid
		err     error
	)
	for attempt := 1; attempt <= createAttempts; attempt++ {
		created, err = r.create(ctx, b)
		if err == nil || !db.IsRetryable(err) {
			break
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrGigClosed), errors.Is(err, gig.ErrNotFound):
			return Bid{}, err
		case db.IsUniqueViolation(err):
			return Bid{}, ErrDuplicateBid
		}
		return Bid{}, fmt.Errorf("bid: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) create(ctx context.Context, b Bid) (Bid, error) {
	const (
		lockGig = `SELECT status FROM gigs WHERE id = $1 FOR SHARE`
		insert  = `
		INSERT INTO bids AS b (id, gig_id, freelancer_id, amount, proposal, status)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING ` + bidColumns
	)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return Bid{}, err
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	var status gig.Status
	if err := tx.QueryRow(ctx, lockGig, b.GigID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, gig.ErrNotFound
		}
		return Bid{}, err
	}
	if status != gig.StatusOpen {
		return Bid{}, ErrGigClosed
	}

	created, err := Scan(tx.QueryRow(ctx, insert, b.ID, b.GigID, b.FreelancerID, b.Amount, b.Proposal, b.Status))
	if err != nil {
		return Bid{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Bid{}, err
	}
	return created, nil
}

func (r *PGRepository) ListForGig(ctx context.Context, gigID string) ([]GigBid, error) {
	if _, err := uuid.Parse(gigID); err != nil {
		return []GigBid{}, nil
	}
	const query = `
		SELECT ` + bidColumns + `, u.name, u.email
		FROM bids b
		JOIN users u ON u.id = b.freelancer_id
		WHERE b.gig_id = $1
		ORDER BY b.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, gigID)
	if err != nil {
		return nil, fmt.Errorf("bid: list for gig: %w", err)
	}
	defer rows.Close()

	out := make([]GigBid, 0, 8)
	for rows.Next() {
		var gb GigBid
		if err := rows.Scan(
			&gb.ID, &gb.GigID, &gb.FreelancerID, &gb.Amount, &gb.Proposal, &gb.Status, &gb.CreatedAt, &gb.UpdatedAt,
			&gb.FreelancerName, &gb.FreelancerEmail,
		); err != nil {
			return nil, fmt.Errorf("bid: scan gig bid: %w", err)
		}
		out = append(out, gb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bid: iterate gig bids: %w", err)
	}
	return out, nil
}

func (r *PGRepository) ListForFreelancer(ctx context.Context, freelancerID string) ([]FreelancerBid, error) {
	if _, err := uuid.Parse(freelancerID); err != nil {
		return []FreelancerBid{}, nil
	}
	const query = `
		SELECT ` + bidColumns + `, g.title, g.budget, g.status
		FROM bids b
		JOIN gigs g ON g.id = b.gig_id
		WHERE b.freelancer_id = $1
		ORDER BY b.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("bid: list for freelancer: %w", err)
	}
	defer rows.Close()

	out := make([]FreelancerBid, 0, 8)
	for rows.Next() {
		var fb FreelancerBid
		if err := rows.Scan(
			&fb.ID, &fb.GigID, &fb.FreelancerID, &fb.Amount, &fb.Proposal, &fb.Status, &fb.CreatedAt, &fb.UpdatedAt,
			&fb.GigTitle, &fb.GigBudget, &fb.GigStatus,
		); err != nil {
			return nil, fmt.Errorf("bid: scan freelancer bid: %w", err)
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bid: iterate freelancer bids: %w", err)
	}
	return out, nil
}

// GetByID reads a bid inside tx without locking it; the gig row lock taken
// afterwards is what serializes hires.
func (r *PGRepository) GetByID(ctx context.Context, tx pgx.Tx, id string) (Bid, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Bid{}, ErrNotFound
	}
	const query = `SELECT ` + bidColumns + ` FROM bids b WHERE b.id = $1`

	b, err := Scan(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, ErrNotFound
		}
		return Bid{}, fmt.Errorf("bid: get: %w", err)
	}
	return b, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Bid, error) {
	const query = `
		UPDATE bids AS b
		SET status = $2,
		    updated_at = now()
		WHERE b.id = $1
		RETURNING ` + bidColumns

	b, err := Scan(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bid{}, ErrNotFound
		}
		return Bid{}, fmt.Errorf("bid: update status: %w", err)
	}
	return b, nil
}

// UpdateManyStatus moves every bid of gigID except excludeID that is
// currently in where to next, returning the number of rows touched.
func (r *PGRepository) UpdateManyStatus(ctx context.Context, tx pgx.Tx, gigID, excludeID string, next, where Status) (int64, error) {
	const query = `
		UPDATE bids
		SET status = $3,
		    updated_at = now()
		WHERE gig_id = $1
		  AND id <> $2
		  AND status = $4
	`
	tag, err := tx.Exec(ctx, query, gigID, excludeID, next, where)
	if err != nil {
		return 0, fmt.Errorf("bid: update sibling status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Scan reads a row selected with the bid column list.
func Scan(row pgx.Row) (Bid, error) {
	var b Bid
	err := row.Scan(
		&b.ID,
		&b.GigID,
		&b.FreelancerID,
		&b.Amount,
		&b.Proposal,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}
