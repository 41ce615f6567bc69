package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lsendel/commerce-sub005/internal/app"
	"github.com/lsendel/commerce-sub005/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *AdminRepository) CreateResource(ctx context.Context, resource domain.Resource) error {
	const stmt = `
INSERT INTO resources (id, kind, name, capacity, confirmed)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, resource.ID, resource.Kind, resource.Name, resource.Capacity, resource.Confirmed)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateSlot(ctx context.Context, slot domain.Slot) error {
	const stmt = `
INSERT INTO slots (resource_id, starts_at, status)
VALUES ($1, $2, $3)`

	_, err := r.exec(ctx, stmt, slot.ResourceID, slot.StartsAt, slot.Status)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListResources(ctx context.Context, kind domain.ResourceKind) ([]domain.Resource, error) {
	const query = `
SELECT id, kind, name, capacity, confirmed
FROM resources
WHERE kind = $1
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.Kind, &res.Name, &res.Capacity, &res.Confirmed); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate resources: %w", rows.Err())
	}
	return resources, nil
}

func (r *AdminRepository) ListSlots(ctx context.Context) ([]app.SlotInfo, error) {
	const query = `
SELECT r.id, r.kind, r.name, r.capacity, r.confirmed, s.resource_id, s.starts_at, s.status
FROM slots s
JOIN resources r ON r.id = s.resource_id
ORDER BY s.starts_at ASC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []app.SlotInfo
	for rows.Next() {
		var info app.SlotInfo
		if err := rows.Scan(
			&info.Resource.ID, &info.Resource.Kind, &info.Resource.Name, &info.Resource.Capacity, &info.Resource.Confirmed,
			&info.Slot.ResourceID, &info.Slot.StartsAt, &info.Slot.Status,
		); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, info)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate slots: %w", rows.Err())
	}
	return slots, nil
}

func (r *AdminRepository) GetSlotForUpdate(ctx context.Context, slotID string) (domain.Slot, error) {
	const query = `SELECT resource_id, starts_at, status FROM slots WHERE resource_id = $1 FOR UPDATE`

	var s domain.Slot
	err := r.queryRow(ctx, query, slotID).Scan(&s.ResourceID, &s.StartsAt, &s.Status)
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

func (r *AdminRepository) UpdateSlotStatus(ctx context.Context, slotID string, status domain.SlotStatus) error {
	const stmt = `UPDATE slots SET status = $2 WHERE resource_id = $1`

	tag, err := r.exec(ctx, stmt, slotID, status)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

func (r *AdminRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AdminRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *AdminRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
