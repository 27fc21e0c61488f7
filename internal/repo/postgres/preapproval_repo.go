package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

type PreApprovalRepo interface {
	Create(ctx context.Context, p *domain.PreApproval) (*domain.PreApproval, error)
	FindByID(ctx context.Context, id int64) (*domain.PreApproval, error)
	FindBySerial(ctx context.Context, serial string) (*domain.PreApproval, error)
	// ConsumeAndCreateEntry claims one use and records the crossing in a
	// single transaction. The claim is `used_count = used_count + 1 WHERE
	// used_count < max_uses`; zero affected rows means a concurrent scan
	// exhausted the quota and no Entry is written. The winner that takes
	// the last use also flips the status to used.
	ConsumeAndCreateEntry(ctx context.Context, id int64, entry *domain.Entry) (*domain.Entry, *domain.PreApproval, error)
	Cancel(ctx context.Context, id int64, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	ListByResident(ctx context.Context, residentID int64, limit, offset int) ([]domain.PreApproval, error)
}

type PreApprovalRepoImpl struct{ pool *pgxpool.Pool }

func NewPreApprovalRepo(pool *pgxpool.Pool) *PreApprovalRepoImpl {
	return &PreApprovalRepoImpl{pool: pool}
}

const preApprovalCols = `id, serial, status, unit_id, resident_id,
visitor_name, visitor_phone, valid_from, valid_until,
max_uses, used_count, created_at, updated_at`

func scanPreApproval(row pgx.Row) (*domain.PreApproval, error) {
	var p domain.PreApproval
	err := row.Scan(
		&p.ID, &p.Serial, &p.Status, &p.UnitID, &p.ResidentID,
		&p.VisitorName, &p.VisitorPhone, &p.ValidFrom, &p.ValidUntil,
		&p.MaxUses, &p.UsedCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PreApprovalRepoImpl) Create(ctx context.Context, p *domain.PreApproval) (*domain.PreApproval, error) {
	const q = `INSERT INTO pre_approvals (
    serial, status, unit_id, resident_id,
    visitor_name, visitor_phone, valid_from, valid_until, max_uses
  ) VALUES ($1,'active',$2,$3,$4,$5,$6,$7,$8)
  RETURNING ` + preApprovalCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanPreApproval(r.pool.QueryRow(ctx, q,
		p.Serial, p.UnitID, p.ResidentID,
		p.VisitorName, p.VisitorPhone, p.ValidFrom, p.ValidUntil, p.MaxUses,
	))
}

func (r *PreApprovalRepoImpl) FindByID(ctx context.Context, id int64) (*domain.PreApproval, error) {
	const q = `SELECT ` + preApprovalCols + ` FROM pre_approvals WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPreApproval(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PreApprovalRepoImpl) FindBySerial(ctx context.Context, serial string) (*domain.PreApproval, error) {
	const q = `SELECT ` + preApprovalCols + ` FROM pre_approvals WHERE serial=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPreApproval(r.pool.QueryRow(ctx, q, serial))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PreApprovalRepoImpl) ConsumeAndCreateEntry(ctx context.Context, id int64, entry *domain.Entry) (*domain.Entry, *domain.PreApproval, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	now := entry.CheckInTime

	ct, err := tx.Exec(ctx, `
UPDATE pre_approvals
SET used_count = used_count + 1, updated_at=$2
WHERE id=$1 AND status='active' AND used_count < max_uses`,
		id, now,
	)
	if err != nil {
		return nil, nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, nil, domain.ErrQuotaExhausted("pre-approval %d has no remaining uses", id)
	}

	// Only the claim winner reaches here, so this read-then-write on the
	// terminal flip is uncontested.
	p, err := scanPreApproval(tx.QueryRow(ctx,
		`SELECT `+preApprovalCols+` FROM pre_approvals WHERE id=$1`, id))
	if err != nil {
		return nil, nil, err
	}
	if p.UsedCount >= p.MaxUses {
		if _, err := tx.Exec(ctx,
			`UPDATE pre_approvals SET status='used', updated_at=$2 WHERE id=$1`, id, now,
		); err != nil {
			return nil, nil, err
		}
		p.Status = domain.PreApprovalUsed
	}

	created, err := scanEntry(tx.QueryRow(ctx, `
INSERT INTO entries (type, status, unit_id, guard_id, visitor_name, visitor_phone,
  was_auto_approved, auto_approval_reason, check_in_time)
VALUES ($1,'approved',$2,$3,$4,$5,true,$6,$7)
RETURNING `+entryCols,
		entry.Type, entry.UnitID, entry.GuardID, entry.VisitorName, entry.VisitorPhone,
		entry.AutoApprovalReason, now,
	))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit consume: %w", err)
	}
	return created, p, nil
}

func (r *PreApprovalRepoImpl) Cancel(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE pre_approvals
SET status='cancelled', updated_at=$2
WHERE id=$1 AND status='active'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PreApprovalRepoImpl) MarkExpired(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE pre_approvals
SET status='expired', updated_at=$2
WHERE id=$1 AND status='active' AND valid_until < $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PreApprovalRepoImpl) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE pre_approvals
SET status='expired', updated_at=$1
WHERE status='active' AND valid_until < $1`
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PreApprovalRepoImpl) ListByResident(ctx context.Context, residentID int64, limit, offset int) ([]domain.PreApproval, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + preApprovalCols + ` FROM pre_approvals
WHERE resident_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, residentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ps := make([]domain.PreApproval, 0, limit)
	for rows.Next() {
		p, err := scanPreApproval(rows)
		if err != nil {
			return nil, err
		}
		ps = append(ps, *p)
	}
	return ps, rows.Err()
}
