package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

type PrincipalRepo interface {
	FindByID(ctx context.Context, id int64) (*domain.Principal, error)
	ListActiveResidents(ctx context.Context, unitID int64) ([]domain.Principal, error)
	FindUnit(ctx context.Context, id int64) (*domain.Unit, error)
}

type PrincipalRepoImpl struct{ pool *pgxpool.Pool }

func NewPrincipalRepo(pool *pgxpool.Pool) *PrincipalRepoImpl { return &PrincipalRepoImpl{pool: pool} }

const principalCols = `id, name, role, COALESCE(unit_id, 0), is_active`

func (r *PrincipalRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Principal, error) {
	const q = `SELECT ` + principalCols + ` FROM principals WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Principal
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.Role, &p.UnitID, &p.IsActive)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PrincipalRepoImpl) ListActiveResidents(ctx context.Context, unitID int64) ([]domain.Principal, error) {
	const q = `SELECT ` + principalCols + ` FROM principals
WHERE unit_id=$1 AND role='resident' AND is_active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []domain.Principal
	for rows.Next() {
		var p domain.Principal
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.UnitID, &p.IsActive); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

func (r *PrincipalRepoImpl) FindUnit(ctx context.Context, id int64) (*domain.Unit, error) {
	const q = `SELECT id, block, number, created_at FROM units WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.Unit
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Block, &u.Number, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
