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

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *BookingRepository) GetSlot(ctx context.Context, slotID string) (domain.Slot, error) {
	const query = `SELECT resource_id, starts_at, status FROM slots WHERE resource_id = $1`

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

func (r *BookingRepository) GetSlotResource(ctx context.Context, slotID string) (domain.Resource, error) {
	const query = `
SELECT r.id, r.kind, r.name, r.capacity, r.confirmed
FROM resources r
JOIN slots s ON s.resource_id = r.id
WHERE r.id = $1`

	var res domain.Resource
	err := r.queryRow(ctx, query, slotID).Scan(&res.ID, &res.Kind, &res.Name, &res.Capacity, &res.Confirmed)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrSlotNotFound
		}
		return domain.Resource{}, fmt.Errorf("get slot resource: %w", err)
	}
	return res, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, slot_id, hold_id, quantity, customer_ref, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		booking.ID,
		booking.SlotID,
		booking.HoldID,
		booking.Quantity,
		booking.CustomerRef,
		booking.Status,
		booking.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrSlotNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

const bookingColumns = `id, slot_id, hold_id, quantity, customer_ref, status, created_at`

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanBooking(r.queryRow(ctx, query, bookingID))
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.scanBooking(r.queryRow(ctx, query, bookingID))
}

func (r *BookingRepository) scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.SlotID, &b.HoldID, &b.Quantity, &b.CustomerRef, &b.Status, &b.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	const stmt = `UPDATE bookings SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, bookingID, status)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

// SumReservedBookings is the slot-aggregate reserved count: pending bookings
// whose hold is still live, plus confirmed bookings. Pending rows over
// expired holds are excluded by the join, keeping this view in agreement
// with the ledger's derived availability even before a sweep.
func (r *BookingRepository) SumReservedBookings(ctx context.Context, slotID string, now time.Time) (int, error) {
	const query = `
SELECT COALESCE(SUM(b.quantity), 0)
FROM bookings b
JOIN holds h ON h.id = b.hold_id
WHERE b.slot_id = $1
  AND (b.status = 'confirmed'
       OR (b.status = 'pending' AND h.status = 'active' AND h.expires_at > $2))`

	var total int
	if err := r.queryRow(ctx, query, slotID, now).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum reserved bookings: %w", err)
	}
	return total, nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
