package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

type EntryRepo interface {
	Create(ctx context.Context, e *domain.Entry) (*domain.Entry, error)
	FindByID(ctx context.Context, id int64) (*domain.Entry, error)
	// Approve flips pending→approved. The guard on status makes a
	// concurrent reject lose cleanly; false means the row was not
	// pending anymore.
	Approve(ctx context.Context, id int64, now time.Time) (bool, error)
	Reject(ctx context.Context, id int64, reason string, now time.Time) (bool, error)
	Checkout(ctx context.Context, id int64, now time.Time) (bool, error)
	ListByUnit(ctx context.Context, unitID int64, limit, offset int) ([]domain.Entry, error)
}

type EntryRepoImpl struct{ pool *pgxpool.Pool }

func NewEntryRepo(pool *pgxpool.Pool) *EntryRepoImpl { return &EntryRepoImpl{pool: pool} }

const entryCols = `id, type, status, unit_id, guard_id,
visitor_name, visitor_phone, vehicle_number,
was_auto_approved, auto_approval_reason, reject_reason,
check_in_time, check_out_time, created_at, updated_at`

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	err := row.Scan(
		&e.ID, &e.Type, &e.Status, &e.UnitID, &e.GuardID,
		&e.VisitorName, &e.VisitorPhone, &e.VehicleNumber,
		&e.WasAutoApproved, &e.AutoApprovalReason, &e.RejectReason,
		&e.CheckInTime, &e.CheckOutTime, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepoImpl) Create(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	const q = `INSERT INTO entries (
    type, status, unit_id, guard_id,
    visitor_name, visitor_phone, vehicle_number,
    was_auto_approved, auto_approval_reason, check_in_time
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  RETURNING ` + entryCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanEntry(r.pool.QueryRow(ctx, q,
		e.Type, e.Status, e.UnitID, e.GuardID,
		e.VisitorName, e.VisitorPhone, e.VehicleNumber,
		e.WasAutoApproved, e.AutoApprovalReason, e.CheckInTime,
	))
}

func (r *EntryRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Entry, error) {
	const q = `SELECT ` + entryCols + ` FROM entries WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	e, err := scanEntry(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *EntryRepoImpl) Approve(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE entries
SET status='approved', check_in_time=$2, updated_at=$2
WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *EntryRepoImpl) Reject(ctx context.Context, id int64, reason string, now time.Time) (bool, error) {
	const q = `UPDATE entries
SET status='rejected', reject_reason=$2, updated_at=$3
WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, reason, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *EntryRepoImpl) Checkout(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE entries
SET status='checked_out', check_out_time=$2, updated_at=$2
WHERE id=$1 AND status='approved' AND check_out_time IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *EntryRepoImpl) ListByUnit(ctx context.Context, unitID int64, limit, offset int) ([]domain.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + entryCols + ` FROM entries
WHERE unit_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, unitID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	es := make([]domain.Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		es = append(es, *e)
	}
	return es, rows.Err()
}
