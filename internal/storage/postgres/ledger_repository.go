package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lsendel/commerce-sub005/internal/domain"
)

type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const resourceColumns = `id, kind, name, capacity, confirmed`

func (r *LedgerRepository) GetResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	return r.scanResource(r.queryRow(ctx, query, resourceID))
}

// GetResourceForUpdate locks the resource row, serializing every capacity
// decision for this resource against concurrent acquires.
func (r *LedgerRepository) GetResourceForUpdate(ctx context.Context, resourceID string) (domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1 FOR UPDATE`
	return r.scanResource(r.queryRow(ctx, query, resourceID))
}

func (r *LedgerRepository) scanResource(row pgx.Row) (domain.Resource, error) {
	var res domain.Resource
	err := row.Scan(&res.ID, &res.Kind, &res.Name, &res.Capacity, &res.Confirmed)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

const holdColumns = `id, resource_id, quantity, status, owner_kind, owner_ref, idempotency_key, created_at, expires_at`

func (r *LedgerRepository) FindHoldByIdempotencyKey(ctx context.Context, resourceID, key string) (*domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE resource_id = $1 AND idempotency_key = $2`

	var h domain.Hold
	err := r.queryRow(ctx, query, resourceID, key).
		Scan(&h.ID, &h.ResourceID, &h.Quantity, &h.Status, &h.OwnerKind, &h.OwnerRef, &h.IdempotencyKey, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by idempotency key: %w", err)
	}
	return &h, nil
}

func (r *LedgerRepository) SumActiveHolds(ctx context.Context, resourceID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity), 0)
FROM holds
WHERE resource_id = $1 AND status = 'active' AND expires_at > $2`

	var total int
	if err := r.queryRow(ctx, query, resourceID, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum active holds: %w", err)
	}
	return total, nil
}

func (r *LedgerRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, resource_id, quantity, status, owner_kind, owner_ref, idempotency_key, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.ResourceID,
		hold.Quantity,
		hold.Status,
		hold.OwnerKind,
		hold.OwnerRef,
		hold.IdempotencyKey,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1 FOR UPDATE`

	var h domain.Hold
	err := r.queryRow(ctx, query, holdID).
		Scan(&h.ID, &h.ResourceID, &h.Quantity, &h.Status, &h.OwnerKind, &h.OwnerRef, &h.IdempotencyKey, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *LedgerRepository) UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus) error {
	const stmt = `UPDATE holds SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, holdID, status)
	if err != nil {
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *LedgerRepository) AddConfirmed(ctx context.Context, resourceID string, delta int) error {
	const stmt = `UPDATE resources SET confirmed = confirmed + $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, resourceID, delta)
	if err != nil {
		return fmt.Errorf("add confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

func (r *LedgerRepository) GetSlot(ctx context.Context, resourceID string) (domain.Slot, error) {
	const query = `SELECT resource_id, starts_at, status FROM slots WHERE resource_id = $1`

	var s domain.Slot
	err := r.queryRow(ctx, query, resourceID).Scan(&s.ResourceID, &s.StartsAt, &s.Status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Slot{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	return s, nil
}

func (r *LedgerRepository) UpdateSlotStatus(ctx context.Context, resourceID string, status domain.SlotStatus) error {
	const stmt = `UPDATE slots SET status = $2 WHERE resource_id = $1`

	tag, err := r.exec(ctx, stmt, resourceID, status)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

func (r *LedgerRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *LedgerRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
