package repo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ClaimRepositoryPG implements domain.ClaimRepository backed by PostgreSQL.
type ClaimRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewClaimRepository creates a new ClaimRepositoryPG.
func NewClaimRepository(sql infra.SQLExecutor) *ClaimRepositoryPG {
	return &ClaimRepositoryPG{sql: sql}
}

// Create inserts the claim and consumes allowance in one statement. The insert
// only fires when the allowance update touched a row, so an exhausted counter
// surfaces as ErrClaimLimit without a separate read.
func (r *ClaimRepositoryPG) Create(ctx context.Context, userID, title string, payload json.RawMessage) (*domain.Claim, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertClaim, userID, title, payload)
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrClaimLimit
		}
		return nil, err
	}
	return claim, nil
}

// ListByUser returns the user's claims, newest first.
func (r *ClaimRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Claim, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectClaimsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *claim)
	}
	return claims, rows.Err()
}

// GetByID fetches one claim scoped to its owner.
func (r *ClaimRepositoryPG) GetByID(ctx context.Context, id, userID string) (*domain.Claim, error) {
	return scanClaim(r.sql.QueryRow(ctx, sqlinline.QSelectClaimByID, id, userID))
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var (
		c      domain.Claim
		status string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Payload, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Status = domain.ClaimStatus(status)
	return &c, nil
}

var _ domain.ClaimRepository = (*ClaimRepositoryPG)(nil)
