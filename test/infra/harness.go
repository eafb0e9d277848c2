package infra

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoDatabase is returned when neither a DSN, docker nor a local Postgres
// is available.
var ErrNoDatabase = errors.New("infra: no postgres available")

// Harness owns the lifecycle of the test database and its pgx pool.
type Harness struct {
	container *PGContainer
	pool      *pgxpool.Pool
	dsn       string
	teardown  func(context.Context) error
}

// NewHarness picks a database in order: dsn, STRESS_TEST_PG_DSN, a docker
// container, a local Postgres. Shared databases get an isolated schema.
func NewHarness(ctx context.Context, dsn string, maxConns int32) (*Harness, error) {
	h := &Harness{}
	shared := true

	switch {
	case dsn != "":
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
	case DockerAvailable(ctx):
		c, containerDSN, err := StartPostgres16(ctx)
		if err != nil {
			return nil, fmt.Errorf("start postgres container: %w", err)
		}
		h.container, dsn, shared = c, containerDSN, false
	default:
		localDSN, err := InitLocalDatabase(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDatabase, err)
		}
		dsn, shared = localDSN, false
	}

	pool, teardown, err := OpenSchema(ctx, dsn, shared, maxConns)
	if err != nil {
		_ = h.container.Terminate(ctx)
		return nil, err
	}
	h.pool, h.dsn, h.teardown = pool, dsn, teardown
	return h, nil
}

// Pool exposes the configured pgx pool.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// DSN returns the connection string for direct connections.
func (h *Harness) DSN() string {
	return h.dsn
}

// Close tears down resources.
func (h *Harness) Close(ctx context.Context) error {
	if h.pool != nil {
		h.pool.Close()
	}
	var err error
	if h.teardown != nil {
		err = h.teardown(ctx)
	}
	return errors.Join(err, h.container.Terminate(ctx))
}

// Reset truncates every table for a clean slate between scenarios.
func (h *Harness) Reset(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "TRUNCATE TABLE outbox, bids, gigs, users CASCADE"); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
