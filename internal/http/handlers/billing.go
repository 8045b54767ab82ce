package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82/webhook"

	"server/internal/billing"
	"server/internal/domain"
	"server/internal/middleware"
)

// Stripe event payloads are small; 1 MiB leaves generous headroom while
// keeping a hostile sender from streaming an unbounded body.
const maxWebhookBody = 1 << 20

type checkoutRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Plan   string `json:"plan"`
}

type checkoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type billingStatusResponse struct {
	Paid               bool    `json:"paid"`
	Tier               string  `json:"tier"`
	SubscriptionStatus *string `json:"subscription_status"`
	PendingPlan        *string `json:"pending_plan"`
}

// CheckoutSessionCreate creates a hosted subscription checkout session for the
// authenticated user. The caller echoes its own userId/email so a stale client
// token can be detected before money changes hands; metadata on the session
// and subscription lets the webhook reconcile the payment later.
func (a *App) CheckoutSessionCreate(w http.ResponseWriter, r *http.Request) {
	if a.Billing == nil {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "Stripe not configured")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" || req.Email == "" || req.Plan == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "userId, email and plan are required")
		return
	}
	if !domain.ValidPlan(req.Plan) {
		a.error(w, http.StatusBadRequest, "invalid_plan", "plan must be standard or pro")
		return
	}
	priceID := a.Cfg.PriceIDForPlan(req.Plan)
	if priceID == "" {
		a.error(w, http.StatusBadRequest, "invalid_plan", "no price configured for plan")
		return
	}

	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || identity.UserID != req.UserID || identity.Email != req.Email {
		a.error(w, http.StatusUnauthorized, "unauthorized", "token does not match the supplied user")
		return
	}

	user, err := a.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "unknown user")
			return
		}
		a.Logger.Error().Err(err).Msg("load user for checkout failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not start checkout")
		return
	}

	customerID, err := a.ensureCustomer(r, user)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("ensure stripe customer failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not start checkout")
		return
	}

	sess, err := a.Billing.CreateCheckoutSession(r.Context(), billing.SessionParams{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: a.Cfg.AppURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  a.Cfg.AppURL + "/checkout?plan=" + req.Plan,
		Metadata: map[string]string{
			"userId": user.ID,
			"plan":   req.Plan,
		},
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("create checkout session failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not start checkout")
		return
	}

	a.Logger.Info().Str("user_id", user.ID).Str("plan", req.Plan).Str("session_id", sess.ID).Msg("checkout session created")
	a.json(w, http.StatusOK, checkoutResponse{ID: sess.ID, URL: sess.URL})
}

// ensureCustomer reuses the stored Stripe customer or creates and persists one.
// The persist must succeed before checkout so repeated attempts never fan out
// into duplicate customers.
func (a *App) ensureCustomer(r *http.Request, user *domain.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	customerID, err := a.Billing.CreateCustomer(r.Context(), user.Email, user.ID)
	if err != nil {
		return "", err
	}
	if err := a.Users.SetStripeCustomerID(r.Context(), user.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

// Shadow structs for the event payloads we consume; the generated stripe-go
// types carry far more than the webhook needs.
type webhookSession struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type webhookSubscription struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// StripeWebhook reconciles payment state from signed Stripe events.
//
// Acknowledge-vs-retry policy: events that can never succeed (missing
// metadata, unknown user, unknown plan) are logged and acknowledged so Stripe
// stops redelivering them; transient persistence failures answer 500 so the
// processor retries. Replays of an already-applied checkout are acknowledged
// without touching the row.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Cfg.StripeWebhookSecret == "" {
		a.error(w, http.StatusServiceUnavailable, "not_configured", "Stripe not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read payload")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), a.Cfg.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("webhook signature verification failed")
		a.error(w, http.StatusBadRequest, "bad_request", "Webhook Error: "+err.Error())
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess webhookSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("unmarshal checkout session failed")
			break
		}
		if !a.applyCheckoutCompleted(w, r, event.ID, sess) {
			return
		}
	case "customer.subscription.updated":
		var sub webhookSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("unmarshal subscription failed")
			break
		}
		if !a.applySubscriptionUpdated(w, r, event.ID, sub) {
			return
		}
	case "customer.subscription.deleted":
		var sub webhookSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			a.Logger.Error().Err(err).Str("event_id", event.ID).Msg("unmarshal subscription failed")
			break
		}
		if !a.applySubscriptionDeleted(w, r, event.ID, sub) {
			return
		}
	default:
		a.Logger.Debug().Str("event_type", string(event.Type)).Msg("ignoring webhook event")
	}

	a.json(w, http.StatusOK, map[string]bool{"received": true})
}

// applyCheckoutCompleted marks the user paid. Returns false when a response
// has already been written.
func (a *App) applyCheckoutCompleted(w http.ResponseWriter, r *http.Request, eventID string, sess webhookSession) bool {
	userID := sess.Metadata["userId"]
	plan := sess.Metadata["plan"]
	if userID == "" || plan == "" {
		a.Logger.Error().Str("event_id", eventID).Str("session_id", sess.ID).Msg("checkout session missing metadata")
		return true
	}
	if !domain.ValidPlan(plan) {
		a.Logger.Error().Str("event_id", eventID).Str("plan", plan).Msg("checkout session has unknown plan")
		return true
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Str("event_id", eventID).Str("user_id", userID).Msg("checkout session for unknown user")
			return true
		}
		a.Logger.Error().Err(err).Str("event_id", eventID).Msg("load user for webhook failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not apply event")
		return false
	}

	// Replayed delivery of a confirmation we already applied.
	if user.Paid() && user.StripeSubscriptionID != nil && *user.StripeSubscriptionID == sess.Subscription {
		a.Logger.Info().Str("event_id", eventID).Str("user_id", userID).Msg("checkout already applied, acknowledging replay")
		return true
	}

	var customerName *string
	if a.Billing != nil && sess.Customer != "" {
		if name, err := a.Billing.CustomerName(r.Context(), sess.Customer); err != nil {
			a.Logger.Warn().Err(err).Str("event_id", eventID).Msg("fetch customer name failed")
		} else {
			customerName = name
		}
	}

	err = a.Users.MarkPaid(r.Context(), userID, domain.PaymentConfirmation{
		Plan:           domain.Plan(plan),
		CustomerID:     sess.Customer,
		SubscriptionID: sess.Subscription,
		CustomerName:   customerName,
		PaidAt:         a.now().UTC(),
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("event_id", eventID).Str("user_id", userID).Msg("mark paid failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not apply event")
		return false
	}

	a.Logger.Info().Str("event_id", eventID).Str("user_id", userID).Str("plan", plan).Msg("payment confirmed")
	return true
}

func (a *App) applySubscriptionUpdated(w http.ResponseWriter, r *http.Request, eventID string, sub webhookSubscription) bool {
	userID := sub.Metadata["userId"]
	if userID == "" {
		a.Logger.Error().Str("event_id", eventID).Str("subscription_id", sub.ID).Msg("subscription event missing metadata")
		return true
	}
	if err := a.Users.UpdateSubscription(r.Context(), userID, sub.ID, sub.Status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Str("event_id", eventID).Str("user_id", userID).Msg("subscription event for unknown user")
			return true
		}
		a.Logger.Error().Err(err).Str("event_id", eventID).Str("user_id", userID).Msg("update subscription failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not apply event")
		return false
	}
	a.Logger.Info().Str("event_id", eventID).Str("user_id", userID).Str("status", sub.Status).Msg("subscription updated")
	return true
}

func (a *App) applySubscriptionDeleted(w http.ResponseWriter, r *http.Request, eventID string, sub webhookSubscription) bool {
	userID := sub.Metadata["userId"]
	if userID == "" {
		a.Logger.Error().Str("event_id", eventID).Str("subscription_id", sub.ID).Msg("subscription event missing metadata")
		return true
	}
	if err := a.Users.MarkUnpaid(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.Logger.Error().Str("event_id", eventID).Str("user_id", userID).Msg("subscription event for unknown user")
			return true
		}
		a.Logger.Error().Err(err).Str("event_id", eventID).Str("user_id", userID).Msg("mark unpaid failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not apply event")
		return false
	}
	a.Logger.Info().Str("event_id", eventID).Str("user_id", userID).Msg("subscription cancelled")
	return true
}

// BillingStatus reports the authenticated user's payment state for client-side
// routing. The server-side guard remains authoritative.
func (a *App) BillingStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	user, err := a.Users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "unknown user")
			return
		}
		a.Logger.Error().Err(err).Msg("load user for billing status failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load billing status")
		return
	}

	var pending *string
	if user.PendingPlan != nil {
		p := string(*user.PendingPlan)
		pending = &p
	}
	a.json(w, http.StatusOK, billingStatusResponse{
		Paid:               user.Paid(),
		Tier:               string(user.Tier),
		SubscriptionStatus: user.SubscriptionStatus,
		PendingPlan:        pending,
	})
}
