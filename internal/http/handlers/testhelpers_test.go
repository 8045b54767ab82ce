package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/billing"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/middleware"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// fakeUsers is an in-memory domain.UserRepository.
type fakeUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*domain.User

	failGetByID        error
	failMarkPaid       error
	failSetCustomerID  error
	markPaidCalls      int
	markUnpaidCalls    int
	updateSubCalls     int
	setCustomerIDCalls int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*domain.User{}}
}

func (f *fakeUsers) add(u *domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		f.nextID++
		u.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	u.CreatedAt, u.UpdatedAt = testTime, testTime
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	f.mu.Lock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			f.mu.Unlock()
			return nil, domain.ErrEmailTaken
		}
	}
	f.mu.Unlock()
	u.Tier = domain.PlanStandard
	u.ClaimsRemaining = 1
	return f.add(u), nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if f.failGetByID != nil {
		return nil, f.failGetByID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) SetPendingPlan(_ context.Context, id string, plan domain.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p := plan
	u.PendingPlan = &p
	return nil
}

func (f *fakeUsers) SetStripeCustomerID(_ context.Context, id, customerID string) error {
	f.setCustomerIDCalls++
	if f.failSetCustomerID != nil {
		return f.failSetCustomerID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if u.StripeCustomerID == nil {
		c := customerID
		u.StripeCustomerID = &c
	}
	return nil
}

func (f *fakeUsers) MarkPaid(_ context.Context, id string, conf domain.PaymentConfirmation) error {
	f.markPaidCalls++
	if f.failMarkPaid != nil {
		return f.failMarkPaid
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	paidAt := conf.PaidAt
	sub := conf.SubscriptionID
	status := "active"
	u.Tier = conf.Plan
	u.PendingPlan = nil
	u.PaidAt = &paidAt
	u.StripeSubscriptionID = &sub
	u.SubscriptionStatus = &status
	u.ClaimsRemaining = domain.AllowanceForPlan(conf.Plan)
	if u.StripeCustomerID == nil && conf.CustomerID != "" {
		c := conf.CustomerID
		u.StripeCustomerID = &c
	}
	if u.Name == nil && conf.CustomerName != nil {
		u.Name = conf.CustomerName
	}
	return nil
}

func (f *fakeUsers) UpdateSubscription(_ context.Context, id, subscriptionID, status string) error {
	f.updateSubCalls++
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub, st := subscriptionID, status
	u.StripeSubscriptionID = &sub
	u.SubscriptionStatus = &st
	return nil
}

func (f *fakeUsers) MarkUnpaid(_ context.Context, id string) error {
	f.markUnpaidCalls++
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	status := "cancelled"
	u.PaidAt = nil
	u.Tier = domain.PlanStandard
	u.StripeSubscriptionID = nil
	u.SubscriptionStatus = &status
	return nil
}

// fakePreRegs is an in-memory domain.PreRegRepository.
type fakePreRegs struct {
	mu     sync.Mutex
	byHash map[string]*domain.PreRegistration
}

func newFakePreRegs() *fakePreRegs {
	return &fakePreRegs{byHash: map[string]*domain.PreRegistration{}}
}

func (f *fakePreRegs) Upsert(_ context.Context, reg *domain.PreRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *reg
	cp.Used = false
	f.byHash[reg.EmailHash] = &cp
	return nil
}

func (f *fakePreRegs) GetByEmailHash(_ context.Context, hash string) (*domain.PreRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (f *fakePreRegs) MarkUsed(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.byHash[hash]
	if !ok {
		return domain.ErrNotFound
	}
	reg.Used = true
	return nil
}

// fakeClaims consumes allowance from the shared fakeUsers, mirroring the
// single-statement semantics of the real repository.
type fakeClaims struct {
	mu     sync.Mutex
	users  *fakeUsers
	nextID int
	claims []domain.Claim
}

func newFakeClaims(users *fakeUsers) *fakeClaims {
	return &fakeClaims{users: users}
}

func (f *fakeClaims) Create(_ context.Context, userID, title string, payload json.RawMessage) (*domain.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users.mu.Lock()
	u, ok := f.users.byID[userID]
	if !ok || !u.CanCreateClaim() {
		f.users.mu.Unlock()
		return nil, domain.ErrClaimLimit
	}
	if u.ClaimsRemaining != domain.ClaimsUnlimited {
		u.ClaimsRemaining--
	}
	u.ClaimsUsed++
	f.users.mu.Unlock()

	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	f.nextID++
	claim := domain.Claim{
		ID:        fmt.Sprintf("claim-%d", f.nextID),
		UserID:    userID,
		Title:     title,
		Payload:   payload,
		Status:    domain.ClaimStatusDraft,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
	f.claims = append([]domain.Claim{claim}, f.claims...)
	return &claim, nil
}

func (f *fakeClaims) ListByUser(_ context.Context, userID string) ([]domain.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Claim
	for _, c := range f.claims {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClaims) GetByID(_ context.Context, id, userID string) (*domain.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.claims {
		if c.ID == id && c.UserID == userID {
			cp := c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// fakeBilling records provider calls and returns canned sessions.
type fakeBilling struct {
	mu              sync.Mutex
	customersMade   int
	sessions        []billing.SessionParams
	customerName    *string
	failCreate      error
	failNameLookup  error
	nextCustomerSeq int
}

func (f *fakeBilling) CreateCustomer(_ context.Context, email, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.customersMade++
	f.nextCustomerSeq++
	return fmt.Sprintf("cus_test_%d", f.nextCustomerSeq), nil
}

func (f *fakeBilling) CreateCheckoutSession(_ context.Context, params billing.SessionParams) (*billing.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, params)
	return &billing.CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", len(f.sessions)),
		URL: "https://checkout.stripe.com/c/pay/cs_test",
	}, nil
}

func (f *fakeBilling) CustomerName(_ context.Context, customerID string) (*string, error) {
	if f.failNameLookup != nil {
		return nil, f.failNameLookup
	}
	return f.customerName, nil
}

var _ billing.Provider = (*fakeBilling)(nil)

func testConfig() *infra.Config {
	return &infra.Config{
		AppEnv:              "test",
		JWTSecret:           "test-secret",
		AppURL:              "https://app.example.com",
		StripeSecretKey:     "sk_test_123",
		StripeWebhookSecret: "whsec_test_secret",
		StripeStandardPrice: "price_standard_test",
		StripeProPrice:      "price_pro_test",
		RateLimitPerMin:     60,
	}
}

func newTestApp(t *testing.T) (*App, *fakeUsers, *fakePreRegs, *fakeClaims, *fakeBilling) {
	t.Helper()
	users := newFakeUsers()
	preRegs := newFakePreRegs()
	claims := newFakeClaims(users)
	provider := &fakeBilling{}
	app := NewApp(testConfig(), zerolog.Nop(), users, preRegs, claims, provider)
	app.Now = func() time.Time { return testTime }
	return app, users, preRegs, claims, provider
}

// authedContext stamps a verified identity onto the request, standing in for
// the JWT middleware.
func authedContext(r *http.Request, userID, email string) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), middleware.Identity{UserID: userID, Email: email}))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
}
