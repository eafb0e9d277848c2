package gig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("gig: not found")
	// ErrStatusMismatch is returned by UpdateStatus when the row no longer
	// carries the expected current status.
	ErrStatusMismatch = errors.New("gig: status changed concurrently")
)

type Repository interface {
	Create(ctx context.Context, g Gig) (Gig, error)
	List(ctx context.Context, filters Filters) ([]Listing, error)
	GetByID(ctx context.Context, id string) (Listing, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const gigColumns = `g.id, g.title, g.description, g.budget, g.status, g.client_id, g.created_at, g.updated_at`

func (r *PGRepository) Create(ctx context.Context, g Gig) (Gig, error) {
	const query = `
		INSERT INTO gigs AS g (id, title, description, budget, status, client_id)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING ` + gigColumns

	created, err := Scan(r.pool.QueryRow(ctx, query, g.ID, g.Title, g.Description, g.Budget, g.Status, g.ClientID))
	if err != nil {
		return Gig{}, fmt.Errorf("gig: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Listing, error) {
	where := []string{"1=1"}
	args := []any{}

	status := filters.Status
	if status == "" && !filters.AnyStatus {
		status = StatusOpen
	}
	if status != "" {
		where = append(where, fmt.Sprintf("g.status=$%d", len(args)+1))
		args = append(args, status)
	}
	if filters.ClientID != "" {
		if _, err := uuid.Parse(filters.ClientID); err != nil {
			return []Listing{}, nil
		}
		where = append(where, fmt.Sprintf("g.client_id=$%d", len(args)+1))
		args = append(args, filters.ClientID)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		where = append(where, fmt.Sprintf("g.title ILIKE $%d", len(args)+1))
		args = append(args, "%"+escapeLike(search)+"%")
	}

	query := `SELECT ` + gigColumns + `, u.name, u.email
		FROM gigs g
		JOIN users u ON u.id = g.client_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY g.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("gig: query list: %w", err)
	}
	defer rows.Close()

	list := []Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("gig: scan listing: %w", err)
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gig: iterate listings: %w", err)
	}
	return list, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Listing{}, ErrNotFound
	}
	const query = `SELECT ` + gigColumns + `, u.name, u.email
		FROM gigs g
		JOIN users u ON u.id = g.client_id
		WHERE g.id = $1`

	l, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, fmt.Errorf("gig: get: %w", err)
	}
	return l, nil
}

// GetForUpdate loads the gig inside tx and holds its row lock until the
// transaction ends. Every hire of the same gig queues on this lock.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Gig, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Gig{}, ErrNotFound
	}
	const query = `SELECT ` + gigColumns + ` FROM gigs g WHERE g.id = $1 FOR UPDATE`

	g, err := Scan(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Gig{}, ErrNotFound
		}
		return Gig{}, fmt.Errorf("gig: get for update: %w", err)
	}
	return g, nil
}

// UpdateStatus moves the gig to next only if it is still in expected.
func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, next, expected Status) (Gig, error) {
	const query = `
		UPDATE gigs AS g
		SET status = $2,
		    updated_at = now()
		WHERE g.id = $1 AND g.status = $3
		RETURNING ` + gigColumns

	g, err := Scan(tx.QueryRow(ctx, query, id, next, expected))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Gig{}, ErrStatusMismatch
		}
		return Gig{}, fmt.Errorf("gig: update status: %w", err)
	}
	return g, nil
}

// Scan reads a row selected with the gig column list.
func Scan(row pgx.Row) (Gig, error) {
	var g Gig
	err := row.Scan(
		&g.ID,
		&g.Title,
		&g.Description,
		&g.Budget,
		&g.Status,
		&g.ClientID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

func scanListing(row pgx.Row) (Listing, error) {
	var l Listing
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Budget,
		&l.Status,
		&l.ClientID,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.ClientName,
		&l.ClientEmail,
	)
	return l, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
