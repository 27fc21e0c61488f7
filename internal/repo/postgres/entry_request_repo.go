package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

type EntryRequestRepo interface {
	Create(ctx context.Context, req *domain.EntryRequest) (*domain.EntryRequest, error)
	FindByID(ctx context.Context, id int64) (*domain.EntryRequest, error)
	// ApproveAndMaterialize transitions pending→approved and inserts the
	// resulting Entry in one transaction. The status transition is a
	// conditional update; a false return means the request was no longer
	// pending and nothing was written.
	ApproveAndMaterialize(ctx context.Context, id int64, now time.Time) (*domain.Entry, bool, error)
	Reject(ctx context.Context, id int64, reason string, now time.Time) (bool, error)
	// MarkExpired is the lazy-expiry path: it flips pending→expired only
	// for rows already past their deadline.
	MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error)
	// ExpireOverdue is the sweeper's bulk pass. It returns the rows it
	// transitioned so the caller can notify the originating guards.
	ExpireOverdue(ctx context.Context, now time.Time) ([]domain.EntryRequest, error)
	ListPendingByUnit(ctx context.Context, unitID int64) ([]domain.EntryRequest, error)
}

type EntryRequestRepoImpl struct{ pool *pgxpool.Pool }

func NewEntryRequestRepo(pool *pgxpool.Pool) *EntryRequestRepoImpl {
	return &EntryRequestRepoImpl{pool: pool}
}

const entryRequestCols = `id, type, status, unit_id, guard_id,
visitor_name, visitor_phone, reject_reason, entry_id,
expires_at, created_at, updated_at`

func scanEntryRequest(row pgx.Row) (*domain.EntryRequest, error) {
	var req domain.EntryRequest
	err := row.Scan(
		&req.ID, &req.Type, &req.Status, &req.UnitID, &req.GuardID,
		&req.VisitorName, &req.VisitorPhone, &req.RejectReason, &req.EntryID,
		&req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *EntryRequestRepoImpl) Create(ctx context.Context, req *domain.EntryRequest) (*domain.EntryRequest, error) {
	const q = `INSERT INTO entry_requests (
    type, status, unit_id, guard_id, visitor_name, visitor_phone, expires_at
  ) VALUES ($1,'pending',$2,$3,$4,$5,$6)
  RETURNING ` + entryRequestCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanEntryRequest(r.pool.QueryRow(ctx, q,
		req.Type, req.UnitID, req.GuardID, req.VisitorName, req.VisitorPhone, req.ExpiresAt,
	))
}

func (r *EntryRequestRepoImpl) FindByID(ctx context.Context, id int64) (*domain.EntryRequest, error) {
	const q = `SELECT ` + entryRequestCols + ` FROM entry_requests WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := scanEntryRequest(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return req, err
}

func (r *EntryRequestRepoImpl) ApproveAndMaterialize(ctx context.Context, id int64, now time.Time) (*domain.Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	// Win the request first; only the winner inserts the entry.
	var req domain.EntryRequest
	err = tx.QueryRow(ctx, `
UPDATE entry_requests
SET status='approved', updated_at=$2
WHERE id=$1 AND status='pending'
RETURNING type, unit_id, guard_id, visitor_name, visitor_phone`,
		id, now,
	).Scan(&req.Type, &req.UnitID, &req.GuardID, &req.VisitorName, &req.VisitorPhone)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	entry, err := scanEntry(tx.QueryRow(ctx, `
INSERT INTO entries (type, status, unit_id, guard_id, visitor_name, visitor_phone, check_in_time)
VALUES ($1,'approved',$2,$3,$4,$5,$6)
RETURNING `+entryCols,
		req.Type, req.UnitID, req.GuardID, req.VisitorName, req.VisitorPhone, now,
	))
	if err != nil {
		return nil, false, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE entry_requests SET entry_id=$2 WHERE id=$1`, id, entry.ID,
	); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit approve: %w", err)
	}
	return entry, true, nil
}

func (r *EntryRequestRepoImpl) Reject(ctx context.Context, id int64, reason string, now time.Time) (bool, error) {
	const q = `UPDATE entry_requests
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

func (r *EntryRequestRepoImpl) MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE entry_requests
SET status='expired', updated_at=$2
WHERE id=$1 AND status='pending' AND expires_at < $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *EntryRequestRepoImpl) ExpireOverdue(ctx context.Context, now time.Time) ([]domain.EntryRequest, error) {
	const q = `UPDATE entry_requests
SET status='expired', updated_at=$1
WHERE status='pending' AND expires_at < $1
RETURNING ` + entryRequestCols
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.EntryRequest
	for rows.Next() {
		req, err := scanEntryRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func (r *EntryRequestRepoImpl) ListPendingByUnit(ctx context.Context, unitID int64) ([]domain.EntryRequest, error) {
	const q = `SELECT ` + entryRequestCols + ` FROM entry_requests
WHERE unit_id=$1 AND status='pending' ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.EntryRequest
	for rows.Next() {
		req, err := scanEntryRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}
