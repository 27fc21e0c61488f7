package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

type GatePassRepo interface {
	Create(ctx context.Context, gp *domain.GatePass) (*domain.GatePass, error)
	FindByID(ctx context.Context, id int64) (*domain.GatePass, error)
	FindBySerial(ctx context.Context, serial string) (*domain.GatePass, error)
	Approve(ctx context.Context, id int64, now time.Time) (bool, error)
	Reject(ctx context.Context, id int64, reason string, now time.Time) (bool, error)
	// ClaimUse is the single-use flag claim: `is_used=true WHERE NOT
	// is_used AND status='approved'`. Zero affected rows means another
	// guard's scan already won.
	ClaimUse(ctx context.Context, id, guardID int64, now time.Time) (bool, error)
	// Cancel voids an unused pass; the requester backs out of the move.
	Cancel(ctx context.Context, id int64, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	ListPending(ctx context.Context, limit, offset int) ([]domain.GatePass, error)
}

type GatePassRepoImpl struct{ pool *pgxpool.Pool }

func NewGatePassRepo(pool *pgxpool.Pool) *GatePassRepoImpl { return &GatePassRepoImpl{pool: pool} }

const gatePassCols = `id, serial, purpose, status, unit_id, resident_id,
description, valid_from, valid_until,
is_used, used_at, used_by_guard, reject_reason, created_at, updated_at`

func scanGatePass(row pgx.Row) (*domain.GatePass, error) {
	var gp domain.GatePass
	err := row.Scan(
		&gp.ID, &gp.Serial, &gp.Purpose, &gp.Status, &gp.UnitID, &gp.ResidentID,
		&gp.Description, &gp.ValidFrom, &gp.ValidUntil,
		&gp.IsUsed, &gp.UsedAt, &gp.UsedByGuard, &gp.RejectReason, &gp.CreatedAt, &gp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &gp, nil
}

func (r *GatePassRepoImpl) Create(ctx context.Context, gp *domain.GatePass) (*domain.GatePass, error) {
	const q = `INSERT INTO gate_passes (
    serial, purpose, status, unit_id, resident_id, description, valid_from, valid_until
  ) VALUES ($1,$2,'pending',$3,$4,$5,$6,$7)
  RETURNING ` + gatePassCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanGatePass(r.pool.QueryRow(ctx, q,
		gp.Serial, gp.Purpose, gp.UnitID, gp.ResidentID, gp.Description, gp.ValidFrom, gp.ValidUntil,
	))
}

func (r *GatePassRepoImpl) FindByID(ctx context.Context, id int64) (*domain.GatePass, error) {
	const q = `SELECT ` + gatePassCols + ` FROM gate_passes WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	gp, err := scanGatePass(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return gp, err
}

func (r *GatePassRepoImpl) FindBySerial(ctx context.Context, serial string) (*domain.GatePass, error) {
	const q = `SELECT ` + gatePassCols + ` FROM gate_passes WHERE serial=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	gp, err := scanGatePass(r.pool.QueryRow(ctx, q, serial))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return gp, err
}

func (r *GatePassRepoImpl) Approve(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE gate_passes
SET status='approved', updated_at=$2
WHERE id=$1 AND status='pending'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *GatePassRepoImpl) Reject(ctx context.Context, id int64, reason string, now time.Time) (bool, error) {
	const q = `UPDATE gate_passes
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

func (r *GatePassRepoImpl) ClaimUse(ctx context.Context, id, guardID int64, now time.Time) (bool, error) {
	const q = `UPDATE gate_passes
SET is_used=true, status='used', used_at=$3, used_by_guard=$2, updated_at=$3
WHERE id=$1 AND NOT is_used AND status='approved'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, guardID, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *GatePassRepoImpl) Cancel(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE gate_passes
SET status='expired', updated_at=$2
WHERE id=$1 AND NOT is_used AND status IN ('pending','approved')`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *GatePassRepoImpl) MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE gate_passes
SET status='expired', updated_at=$2
WHERE id=$1 AND status IN ('pending','approved') AND valid_until < $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *GatePassRepoImpl) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE gate_passes
SET status='expired', updated_at=$1
WHERE status IN ('pending','approved') AND valid_until < $1`
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *GatePassRepoImpl) ListPending(ctx context.Context, limit, offset int) ([]domain.GatePass, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + gatePassCols + ` FROM gate_passes
WHERE status='pending' ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gps := make([]domain.GatePass, 0, limit)
	for rows.Next() {
		gp, err := scanGatePass(rows)
		if err != nil {
			return nil, err
		}
		gps = append(gps, *gp)
	}
	return gps, rows.Err()
}
