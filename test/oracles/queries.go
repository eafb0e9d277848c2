package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All lists queries that must return no rows while the system is consistent.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_hired_bid",
			SQL: `SELECT gig_id, COUNT(*) FROM bids
                  WHERE status = 'hired'
                  GROUP BY gig_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_assigned_has_winner",
			SQL: `SELECT g.id FROM gigs g
                  WHERE g.status = 'assigned'
                    AND (SELECT COUNT(*) FROM bids b WHERE b.gig_id = g.id AND b.status = 'hired') <> 1`,
		},
		{
			Name: "O3_assigned_has_no_pending",
			SQL: `SELECT b.id, b.gig_id FROM bids b
                  JOIN gigs g ON g.id = b.gig_id
                  WHERE g.status = 'assigned' AND b.status = 'pending'`,
		},
		{
			Name: "O4_open_is_untouched",
			SQL: `SELECT b.id, b.gig_id, b.status FROM bids b
                  JOIN gigs g ON g.id = b.gig_id
                  WHERE g.status = 'open' AND b.status <> 'pending'`,
		},
		{
			Name: "O5_one_assignment_event",
			SQL: `SELECT g.id, g.status, COUNT(o.id) FROM gigs g
                  LEFT JOIN outbox o ON o.topic = 'gig.assigned' AND o.payload->>'gig_id' = g.id::text
                  GROUP BY g.id, g.status
                  HAVING (g.status = 'assigned' AND COUNT(o.id) <> 1)
                      OR (g.status = 'open' AND COUNT(o.id) <> 0)`,
		},
		{
			Name: "O6_event_names_winner",
			SQL: `SELECT o.id FROM outbox o
                  LEFT JOIN bids b ON b.id::text = o.payload->>'bid_id'
                  WHERE o.topic = 'gig.assigned'
                    AND (b.id IS NULL OR b.status <> 'hired' OR b.gig_id::text <> o.payload->>'gig_id')`,
		},
		{
			Name: "O7_no_self_bids",
			SQL: `SELECT b.id FROM bids b
                  JOIN gigs g ON g.id = b.gig_id
                  WHERE g.client_id = b.freelancer_id`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
