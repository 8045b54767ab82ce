package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Create inserts a fresh profile: standard tier, unpaid, one claim of allowance.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	var pending *string
	if user.PendingPlan != nil {
		p := string(*user.PendingPlan)
		pending = &p
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertUser, user.Email, user.Name, user.PasswordHash, pending)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID fetches a profile by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByID, id))
}

// GetByEmail fetches a profile by lowercased email.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.sql.QueryRow(ctx, sqlinline.QSelectUserByEmail, email))
}

// SetPendingPlan records a plan choice awaiting checkout.
func (r *UserRepositoryPG) SetPendingPlan(ctx context.Context, id string, plan domain.Plan) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetPendingPlan, id, string(plan))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStripeCustomerID persists the processor customer id, first writer wins.
// A no-op when a customer id is already stored.
func (r *UserRepositoryPG) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetStripeCustomerID, id, customerID)
	return err
}

// MarkPaid applies a webhook-confirmed checkout to the profile.
func (r *UserRepositoryPG) MarkPaid(ctx context.Context, id string, conf domain.PaymentConfirmation) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkUserPaid,
		id,
		string(conf.Plan),
		conf.PaidAt,
		conf.CustomerID,
		conf.SubscriptionID,
		domain.AllowanceForPlan(conf.Plan),
		conf.CustomerName,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateSubscription mirrors the processor's subscription id and status.
func (r *UserRepositoryPG) UpdateSubscription(ctx context.Context, id, subscriptionID, status string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateSubscription, id, subscriptionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkUnpaid reverts a cancelled subscription to the unpaid standard tier.
func (r *UserRepositoryPG) MarkUnpaid(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkUserUnpaid, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u       domain.User
		tier    string
		pending *string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &tier, &pending, &u.PaidAt,
		&u.StripeCustomerID, &u.StripeSubscriptionID, &u.SubscriptionStatus,
		&u.ClaimsUsed, &u.ClaimsRemaining, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Tier = domain.Plan(tier)
	if pending != nil {
		p := domain.Plan(*pending)
		u.PendingPlan = &p
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
