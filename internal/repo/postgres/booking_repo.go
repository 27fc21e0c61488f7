package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

type BookingRepo interface {
	FindAmenity(ctx context.Context, id int64) (*domain.Amenity, error)
	// Propose runs the whole conflict check and the insert in one
	// transaction, serialized per (amenity, date) by an advisory lock so
	// two overlapping proposals cannot both commit under read-committed.
	Propose(ctx context.Context, b *domain.Booking, maxPerResident int) (*domain.Booking, error)
	FindByID(ctx context.Context, id int64) (*domain.Booking, error)
	Confirm(ctx context.Context, id int64, now time.Time) (bool, error)
	Cancel(ctx context.Context, id int64, reason string, now time.Time) (bool, error)
	Complete(ctx context.Context, id int64, now time.Time) (bool, error)
	ListForAmenityDate(ctx context.Context, amenityID int64, day time.Time) ([]domain.Booking, error)
}

type BookingRepoImpl struct{ pool *pgxpool.Pool }

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepoImpl { return &BookingRepoImpl{pool: pool} }

const bookingCols = `id, amenity_id, resident_id, booking_date,
start_time, end_time, status, cancel_reason, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.AmenityID, &b.ResidentID, &b.BookingDate,
		&b.StartTime, &b.EndTime, &b.Status, &b.CancelReason,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepoImpl) FindAmenity(ctx context.Context, id int64) (*domain.Amenity, error) {
	const q = `SELECT id, name, max_per_resident, is_active, created_at FROM amenities WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var a domain.Amenity
	err := r.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Name, &a.MaxPerResident, &a.IsActive, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *BookingRepoImpl) Propose(ctx context.Context, b *domain.Booking, maxPerResident int) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Transaction-scoped advisory lock on (amenity, date). Held until
	// commit/rollback, so concurrent proposals for the same slot key
	// queue here instead of racing the overlap scan.
	lockKey := fmt.Sprintf("booking:%d:%s", b.AmenityID, b.BookingDate.Format("2006-01-02"))
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT start_time, end_time FROM bookings
WHERE amenity_id=$1 AND booking_date=$2::date AND status IN ('pending','confirmed')`,
		b.AmenityID, b.BookingDate,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			rows.Close()
			return nil, err
		}
		if b.StartTime < end && b.EndTime > start {
			rows.Close()
			return nil, domain.ErrSchedulingConflict(
				"slot %s-%s collides with existing booking %s-%s", b.StartTime, b.EndTime, start, end)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var active int
	if err := tx.QueryRow(ctx, `
SELECT COUNT(*) FROM bookings
WHERE amenity_id=$1 AND resident_id=$2 AND status IN ('pending','confirmed')`,
		b.AmenityID, b.ResidentID,
	).Scan(&active); err != nil {
		return nil, err
	}
	if active >= maxPerResident {
		return nil, domain.ErrQuotaExhausted(
			"resident %d already holds %d active bookings on amenity %d (max %d)",
			b.ResidentID, active, b.AmenityID, maxPerResident)
	}

	created, err := scanBooking(tx.QueryRow(ctx, `
INSERT INTO bookings (amenity_id, resident_id, booking_date, start_time, end_time, status)
VALUES ($1,$2,$3,$4,$5,'pending')
RETURNING `+bookingCols,
		b.AmenityID, b.ResidentID, b.BookingDate, b.StartTime, b.EndTime,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit propose: %w", err)
	}
	return created, nil
}

func (r *BookingRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *BookingRepoImpl) Confirm(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE bookings
SET status='confirmed', updated_at=$2
WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *BookingRepoImpl) Cancel(ctx context.Context, id int64, reason string, now time.Time) (bool, error) {
	const q = `UPDATE bookings
SET status='cancelled', cancel_reason=$2, updated_at=$3
WHERE id=$1 AND status IN ('pending','confirmed')`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, reason, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *BookingRepoImpl) Complete(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE bookings
SET status='completed', updated_at=$2
WHERE id=$1 AND status='confirmed'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *BookingRepoImpl) ListForAmenityDate(ctx context.Context, amenityID int64, day time.Time) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
WHERE amenity_id=$1 AND booking_date=$2::date
ORDER BY start_time ASC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, amenityID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bs []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bs = append(bs, *b)
	}
	return bs, rows.Err()
}
