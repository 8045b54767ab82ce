package domain

import (
	"context"
	"encoding/json"
	"time"
)

// PaymentConfirmation carries the webhook-reported state applied when a
// checkout session completes.
type PaymentConfirmation struct {
	Plan           Plan
	CustomerID     string
	SubscriptionID string
	CustomerName   *string
	PaidAt         time.Time
}

// UserRepository defines access methods for user profiles.
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetPendingPlan(ctx context.Context, id string, plan Plan) error
	// SetStripeCustomerID persists the customer id only when none is stored yet.
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
	// MarkPaid applies a checkout confirmation: tier, paid_at, subscription id,
	// claim allowance, cleared pending plan.
	MarkPaid(ctx context.Context, id string, conf PaymentConfirmation) error
	UpdateSubscription(ctx context.Context, id, subscriptionID, status string) error
	// MarkUnpaid reverts a cancelled subscription to the unpaid standard tier.
	MarkUnpaid(ctx context.Context, id string) error
}

// PreRegRepository handles pre-registration staging records.
type PreRegRepository interface {
	Upsert(ctx context.Context, reg *PreRegistration) error
	GetByEmailHash(ctx context.Context, hash string) (*PreRegistration, error)
	// MarkUsed flags a record as consumed at signup. Reads do not gate on it.
	MarkUsed(ctx context.Context, hash string) error
}

// ClaimRepository handles claim drafts and the per-user allowance counters.
type ClaimRepository interface {
	// Create inserts the claim and consumes one unit of allowance in the same
	// statement. ErrClaimLimit when the user has none left.
	Create(ctx context.Context, userID, title string, payload json.RawMessage) (*Claim, error)
	ListByUser(ctx context.Context, userID string) ([]Claim, error)
	GetByID(ctx context.Context, id, userID string) (*Claim, error)
}
