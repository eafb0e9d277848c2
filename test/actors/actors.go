package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/yash9140/GigFlow/auth"
	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
	"github.com/yash9140/GigFlow/hire"
)

// ErrContract is returned by an actor that observed a result the hire
// contract forbids.
var ErrContract = errors.New("actors: contract violated")

// World is the shared state every actor works against.
type World struct {
	Pool        *pgxpool.Pool
	Gigs        *gig.Service
	Bids        *bid.Service
	Hire        *hire.Service
	Clients     []string
	Freelancers []string
	Stats       *Stats

	winners sync.Map // gig id -> bid id
}

// Stats counts actor outcomes.
type Stats struct {
	GigsPosted    atomic.Int64
	BidsPlaced    atomic.Int64
	BidsRefused   atomic.Int64
	Hires         atomic.Int64
	HireConflicts atomic.Int64
	HireFailures  atomic.Int64
	IntrusionsRan atomic.Int64
	OutboxDone    atomic.Int64
}

func (s *Stats) String() string {
	return fmt.Sprintf("gigs=%d bids=%d refused=%d hires=%d conflicts=%d tx_failures=%d intrusions=%d outbox=%d",
		s.GigsPosted.Load(), s.BidsPlaced.Load(), s.BidsRefused.Load(), s.Hires.Load(),
		s.HireConflicts.Load(), s.HireFailures.Load(), s.IntrusionsRan.Load(), s.OutboxDone.Load())
}

// Seed creates the clients and freelancers and wires services onto pool.
func Seed(ctx context.Context, pool *pgxpool.Pool, clients, freelancers, maxAttempts int, log zerolog.Logger) (*World, error) {
	users := auth.NewRepository(pool)
	run := time.Now().UnixNano()

	create := func(role auth.Role, n int) ([]string, error) {
		ids := make([]string, 0, n)
		for i := 0; i < n; i++ {
			u, err := users.CreateUser(ctx, auth.CreateUserParams{
				Name:         fmt.Sprintf("%s %d", role, i),
				Email:        fmt.Sprintf("%s-%d-%d@stress.test", role, run, i),
				PasswordHash: "x",
				Role:         role,
			})
			if err != nil {
				return nil, fmt.Errorf("seed %s: %w", role, err)
			}
			ids = append(ids, u.ID)
		}
		return ids, nil
	}

	clientIDs, err := create(auth.RoleClient, clients)
	if err != nil {
		return nil, err
	}
	freelancerIDs, err := create(auth.RoleFreelancer, freelancers)
	if err != nil {
		return nil, err
	}

	gigRepo := gig.NewRepository(pool)
	return &World{
		Pool:        pool,
		Gigs:        gig.NewService(gigRepo),
		Bids:        bid.NewService(bid.NewRepository(pool), gigRepo),
		Hire:        hire.NewService(hire.NewPGStore(pool), nil, nil, log).WithMaxAttempts(maxAttempts),
		Clients:     clientIDs,
		Freelancers: freelancerIDs,
		Stats:       &Stats{},
	}, nil
}

// RecordWin remembers bidID as the winner of gigID and fails if the gig
// already had one.
func (w *World) RecordWin(gigID, bidID string) error {
	if prev, loaded := w.winners.LoadOrStore(gigID, bidID); loaded {
		return fmt.Errorf("%w: gig %s hired twice (%s then %s)", ErrContract, gigID, prev, bidID)
	}
	return nil
}

func pick(ids []string) string { return ids[rand.Intn(len(ids))] }

func done(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

func pause(base, jitter int) {
	time.Sleep(time.Duration(base+rand.Intn(jitter)) * time.Millisecond)
}

// Poster keeps publishing new gigs for random clients.
func Poster(ctx context.Context, w *World, stop <-chan struct{}) error {
	for n := 0; !done(ctx, stop); n++ {
		_, err := w.Gigs.Create(ctx, gig.CreateParams{
			ClientID:    pick(w.Clients),
			Title:       fmt.Sprintf("stress gig %d", n),
			Description: "load generated",
			Budget:      float64(100 + rand.Intn(900)),
		})
		if err == nil {
			w.Stats.GigsPosted.Add(1)
		}
		pause(40, 60)
	}
	return nil
}

// Bidder places bids from random freelancers on random open gigs.
func Bidder(ctx context.Context, w *World, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		var gigID string
		err := w.Pool.QueryRow(ctx, `SELECT id FROM gigs WHERE status = 'open' ORDER BY random() LIMIT 1`).Scan(&gigID)
		if err != nil {
			pause(20, 20)
			continue
		}
		_, err = w.Bids.Submit(ctx, bid.SubmitParams{
			GigID:        gigID,
			FreelancerID: pick(w.Freelancers),
			Amount:       float64(50 + rand.Intn(500)),
			Proposal:     "I can do it",
		})
		if err != nil {
			w.Stats.BidsRefused.Add(1)
		} else {
			w.Stats.BidsPlaced.Add(1)
		}
		pause(5, 20)
	}
	return nil
}

func pendingBid(ctx context.Context, pool *pgxpool.Pool) (bidID, ownerID string, err error) {
	err = pool.QueryRow(ctx, `
		SELECT b.id, g.client_id FROM bids b
		JOIN gigs g ON g.id = b.gig_id
		WHERE b.status = 'pending'
		ORDER BY random() LIMIT 1`).Scan(&bidID, &ownerID)
	return bidID, ownerID, err
}

// Hirer hires random pending bids as the gig owner. Two owners' sessions
// often race for the same gig.
func Hirer(ctx context.Context, w *World, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		bidID, ownerID, err := pendingBid(ctx, w.Pool)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) && ctx.Err() == nil {
				w.Stats.HireFailures.Add(1)
			}
			pause(20, 20)
			continue
		}

		res, err := w.Hire.Hire(ctx, ownerID, bidID)
		switch {
		case err == nil:
			w.Stats.Hires.Add(1)
			if err := w.RecordWin(res.Gig.ID, res.Bid.ID); err != nil {
				return err
			}
		case errors.Is(err, hire.ErrConflict):
			w.Stats.HireConflicts.Add(1)
		case errors.Is(err, hire.ErrTransaction):
			w.Stats.HireFailures.Add(1)
		default:
			return fmt.Errorf("%w: owner hire of %s: %v", ErrContract, bidID, err)
		}
		pause(10, 30)
	}
	return nil
}

// Intruder tries to hire bids on gigs it does not own.
func Intruder(ctx context.Context, w *World, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		bidID, _, err := pendingBid(ctx, w.Pool)
		if err != nil {
			pause(50, 50)
			continue
		}
		w.Stats.IntrusionsRan.Add(1)
		_, err = w.Hire.Hire(ctx, pick(w.Freelancers), bidID)
		switch {
		case errors.Is(err, hire.ErrUnauthorized), errors.Is(err, hire.ErrTransaction):
		case err == nil:
			return fmt.Errorf("%w: non-owner hired bid %s", ErrContract, bidID)
		default:
			return fmt.Errorf("%w: non-owner hire of %s: %v", ErrContract, bidID, err)
		}
		pause(50, 100)
	}
	return nil
}

// OutboxWorker consumes pending outbox messages with SKIP LOCKED.
func OutboxWorker(ctx context.Context, w *World, stop <-chan struct{}) error {
	for !done(ctx, stop) {
		tag, err := w.Pool.Exec(ctx, `
			UPDATE outbox SET status = 'processed', attempts = attempts + 1, last_attempt = now()
			WHERE id IN (
				SELECT id FROM outbox WHERE status = 'pending'
				ORDER BY created_at
				FOR UPDATE SKIP LOCKED LIMIT 10
			)`)
		if err == nil {
			w.Stats.OutboxDone.Add(tag.RowsAffected())
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
