package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// PreRegRepositoryPG implements domain.PreRegRepository backed by PostgreSQL.
type PreRegRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewPreRegRepository creates a new PreRegRepositoryPG.
func NewPreRegRepository(sql infra.SQLExecutor) *PreRegRepositoryPG {
	return &PreRegRepositoryPG{sql: sql}
}

// Upsert writes or refreshes a staging record; re-submitting resets used=false,
// matching a visitor changing their plan choice before registering.
func (r *PreRegRepositoryPG) Upsert(ctx context.Context, reg *domain.PreRegistration) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertPreReg, reg.EmailHash, reg.Email, string(reg.Plan))
	return err
}

// GetByEmailHash fetches a staging record.
func (r *PreRegRepositoryPG) GetByEmailHash(ctx context.Context, hash string) (*domain.PreRegistration, error) {
	var (
		reg  domain.PreRegistration
		plan string
	)
	row := r.sql.QueryRow(ctx, sqlinline.QSelectPreRegByHash, hash)
	err := row.Scan(&reg.EmailHash, &reg.Email, &plan, &reg.Used, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	reg.Plan = domain.Plan(plan)
	return &reg, nil
}

// MarkUsed flags the record as consumed at signup.
func (r *PreRegRepositoryPG) MarkUsed(ctx context.Context, hash string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkPreRegUsed, hash)
	return err
}

var _ domain.PreRegRepository = (*PreRegRepositoryPG)(nil)
