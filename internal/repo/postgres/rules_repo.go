package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Agastya221/society-gate-backend/internal/domain"
)

type RulesRepo interface {
	CreateRule(ctx context.Context, rule *domain.AutoApprovalRule) (*domain.AutoApprovalRule, error)
	FindActiveRule(ctx context.Context, unitID int64, providerTag string) (*domain.AutoApprovalRule, error)
	ListRulesByUnit(ctx context.Context, unitID int64) ([]domain.AutoApprovalRule, error)
	DeactivateRule(ctx context.Context, id int64, now time.Time) (bool, error)

	CreateExpected(ctx context.Context, ed *domain.ExpectedDelivery) (*domain.ExpectedDelivery, error)
	// FindOpenExpected returns the oldest unused expectation for the
	// provider on the given calendar day, or nil.
	FindOpenExpected(ctx context.Context, unitID int64, providerTag string, day time.Time) (*domain.ExpectedDelivery, error)
	// ClaimExpected consumes the one-shot flag; false means a concurrent
	// arrival already claimed it.
	ClaimExpected(ctx context.Context, id int64, now time.Time) (bool, error)
}

type RulesRepoImpl struct{ pool *pgxpool.Pool }

func NewRulesRepo(pool *pgxpool.Pool) *RulesRepoImpl { return &RulesRepoImpl{pool: pool} }

const ruleCols = `id, unit_id, resident_id, provider_tag,
allowed_days, time_from, time_until, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (*domain.AutoApprovalRule, error) {
	var rule domain.AutoApprovalRule
	var days []int32
	err := row.Scan(
		&rule.ID, &rule.UnitID, &rule.ResidentID, &rule.ProviderTag,
		&days, &rule.TimeFrom, &rule.TimeUntil, &rule.IsActive,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		rule.AllowedDays = append(rule.AllowedDays, time.Weekday(d))
	}
	return &rule, nil
}

func weekdaysToInts(days []time.Weekday) []int32 {
	out := make([]int32, 0, len(days))
	for _, d := range days {
		out = append(out, int32(d))
	}
	return out
}

func (r *RulesRepoImpl) CreateRule(ctx context.Context, rule *domain.AutoApprovalRule) (*domain.AutoApprovalRule, error) {
	const q = `INSERT INTO auto_approval_rules (
    unit_id, resident_id, provider_tag, allowed_days, time_from, time_until, is_active
  ) VALUES ($1,$2,$3,$4,$5,$6,true)
  RETURNING ` + ruleCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanRule(r.pool.QueryRow(ctx, q,
		rule.UnitID, rule.ResidentID, rule.ProviderTag,
		weekdaysToInts(rule.AllowedDays), rule.TimeFrom, rule.TimeUntil,
	))
}

func (r *RulesRepoImpl) FindActiveRule(ctx context.Context, unitID int64, providerTag string) (*domain.AutoApprovalRule, error) {
	const q = `SELECT ` + ruleCols + ` FROM auto_approval_rules
WHERE unit_id=$1 AND provider_tag=$2 AND is_active
ORDER BY created_at DESC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rule, err := scanRule(r.pool.QueryRow(ctx, q, unitID, providerTag))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rule, err
}

func (r *RulesRepoImpl) ListRulesByUnit(ctx context.Context, unitID int64) ([]domain.AutoApprovalRule, error) {
	const q = `SELECT ` + ruleCols + ` FROM auto_approval_rules
WHERE unit_id=$1 ORDER BY created_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.AutoApprovalRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (r *RulesRepoImpl) DeactivateRule(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE auto_approval_rules
SET is_active=false, updated_at=$2
WHERE id=$1 AND is_active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

const expectedCols = `id, unit_id, resident_id, provider_tag,
expected_date, is_used, used_at, created_at`

func scanExpected(row pgx.Row) (*domain.ExpectedDelivery, error) {
	var ed domain.ExpectedDelivery
	err := row.Scan(
		&ed.ID, &ed.UnitID, &ed.ResidentID, &ed.ProviderTag,
		&ed.ExpectedDate, &ed.IsUsed, &ed.UsedAt, &ed.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ed, nil
}

func (r *RulesRepoImpl) CreateExpected(ctx context.Context, ed *domain.ExpectedDelivery) (*domain.ExpectedDelivery, error) {
	const q = `INSERT INTO expected_deliveries (
    unit_id, resident_id, provider_tag, expected_date
  ) VALUES ($1,$2,$3,$4)
  RETURNING ` + expectedCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanExpected(r.pool.QueryRow(ctx, q,
		ed.UnitID, ed.ResidentID, ed.ProviderTag, ed.ExpectedDate,
	))
}

func (r *RulesRepoImpl) FindOpenExpected(ctx context.Context, unitID int64, providerTag string, day time.Time) (*domain.ExpectedDelivery, error) {
	const q = `SELECT ` + expectedCols + ` FROM expected_deliveries
WHERE unit_id=$1 AND provider_tag=$2 AND expected_date=$3::date AND NOT is_used
ORDER BY created_at ASC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ed, err := scanExpected(r.pool.QueryRow(ctx, q, unitID, providerTag, day))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ed, err
}

func (r *RulesRepoImpl) ClaimExpected(ctx context.Context, id int64, now time.Time) (bool, error) {
	const q = `UPDATE expected_deliveries
SET is_used=true, used_at=$2
WHERE id=$1 AND NOT is_used`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
