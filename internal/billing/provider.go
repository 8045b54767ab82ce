// Package billing wraps the payment processor behind a small interface so the
// HTTP handlers stay testable without a live network dependency. The Stripe
// client is constructed explicitly at process start and passed in; there is no
// package-level key.
package billing

import "context"

// CheckoutSession is a hosted checkout session the client gets redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// SessionParams describes the subscription checkout to create. Metadata is
// attached to both the session and the subscription so every later webhook can
// be correlated back to a user without a database lookup.
type SessionParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Provider is the processor surface the handlers need.
type Provider interface {
	// CreateCustomer creates a processor customer for the user and returns its id.
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	// CreateCheckoutSession requests a hosted subscription checkout session.
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*CheckoutSession, error)
	// CustomerName fetches the name the customer entered during checkout, nil
	// when the processor has none.
	CustomerName(ctx context.Context, customerID string) (*string, error)
}
