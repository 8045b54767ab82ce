package domain

import "time"

// Plan enumerates subscription tiers.
type Plan string

const (
	PlanStandard Plan = "standard"
	PlanPro      Plan = "pro"
)

// ValidPlan reports whether s names a recognized tier.
func ValidPlan(s string) bool {
	return s == string(PlanStandard) || s == string(PlanPro)
}

// ClaimsUnlimited is the claims_remaining sentinel for the pro tier.
const ClaimsUnlimited = -1

// AllowanceForPlan returns the claim allowance granted on payment confirmation.
func AllowanceForPlan(p Plan) int {
	if p == PlanPro {
		return ClaimsUnlimited
	}
	return 1
}

// User is one row of the profile store, keyed by the authentication identity.
//
// PaidAt is the authoritative access gate: paid == PaidAt != nil. The
// SubscriptionStatus mirror is informational only.
type User struct {
	ID                   string
	Email                string
	Name                 *string
	PasswordHash         string
	Tier                 Plan
	PendingPlan          *Plan
	PaidAt               *time.Time
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionStatus   *string
	ClaimsUsed           int
	ClaimsRemaining      int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Paid reports whether a successful checkout has been reconciled for the user.
func (u User) Paid() bool {
	return u.PaidAt != nil
}

// CanCreateClaim reports whether the user has claim allowance left.
func (u User) CanCreateClaim() bool {
	return u.ClaimsRemaining == ClaimsUnlimited || u.ClaimsRemaining > 0
}
