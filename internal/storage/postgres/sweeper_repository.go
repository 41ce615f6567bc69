package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SweeperRepository struct {
	pool *pgxpool.Pool
}

func NewSweeperRepository(pool *pgxpool.Pool) *SweeperRepository {
	return &SweeperRepository{pool: pool}
}

func (r *SweeperRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// ExpireHolds flips active holds past their expiry to expired. Purely
// housekeeping: availability math never counted them past expiry anyway.
func (r *SweeperRepository) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	const stmt = `
UPDATE holds
SET status = 'expired'
WHERE status = 'active' AND expires_at <= $1`

	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("expire holds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ExpirePendingBookings moves pending bookings whose hold was expired to the
// expired state.
func (r *SweeperRepository) ExpirePendingBookings(ctx context.Context) (int, error) {
	const stmt = `
UPDATE bookings b
SET status = 'expired'
FROM holds h
WHERE h.id = b.hold_id AND b.status = 'pending' AND h.status = 'expired'`

	tag, err := r.exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("expire pending bookings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ReopenFullSlots returns slots marked full back to open where expiry freed
// capacity, so the status view cannot lag behind derived availability.
func (r *SweeperRepository) ReopenFullSlots(ctx context.Context, now time.Time) (int, error) {
	const stmt = `
UPDATE slots s
SET status = 'open'
FROM resources r
WHERE s.resource_id = r.id
  AND s.status = 'full'
  AND r.capacity - r.confirmed - COALESCE((
        SELECT SUM(h.quantity)
        FROM holds h
        WHERE h.resource_id = r.id AND h.status = 'active' AND h.expires_at > $1
      ), 0) > 0`

	tag, err := r.exec(ctx, stmt, now)
	if err != nil {
		return 0, fmt.Errorf("reopen full slots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *SweeperRepository) CountActiveHolds(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM holds WHERE status = 'active' AND expires_at > $1`

	var count int
	if err := r.queryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active holds: %w", err)
	}
	return count, nil
}

func (r *SweeperRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *SweeperRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
