package chaos

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TerminateRandomBackend periodically kills one backend tagged with appName,
// other than the one issuing the kill. It returns the number of kills.
func TerminateRandomBackend(ctx context.Context, pool *pgxpool.Pool, appName string, stop <-chan struct{}) int64 {
	var kills atomic.Int64
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return kills.Load()
		case <-stop:
			return kills.Load()
		case <-ticker.C:
			if rand.Intn(5) != 0 {
				continue
			}
			var killed bool
			err := pool.QueryRow(ctx, `
				SELECT COALESCE(bool_or(pg_terminate_backend(pid)), false) FROM (
					SELECT pid FROM pg_stat_activity
					WHERE datname = current_database()
					  AND application_name = $1
					  AND pid <> pg_backend_pid()
					ORDER BY random() LIMIT 1
				) victim`, appName).Scan(&killed)
			if err == nil && killed {
				kills.Add(1)
			}
		}
	}
}
