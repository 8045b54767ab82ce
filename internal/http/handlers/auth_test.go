package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"server/internal/domain"
	"server/internal/middleware"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegisterIssuesTokenAndDefaultsNext(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	rec := postJSON(t, app.AuthRegister, "/v1/auth/register", map[string]string{
		"email":    "Alice@Example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Next != "/plans" {
		t.Fatalf("next = %q, want /plans", resp.Next)
	}
	if resp.User.Email != "alice@example.com" {
		t.Fatalf("email = %q, want lowercased", resp.User.Email)
	}
	if resp.User.Paid {
		t.Fatalf("new account must not be paid")
	}

	claims, err := middleware.VerifyJWT("test-secret", resp.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != resp.User.ID || claims.Email != resp.User.Email {
		t.Fatalf("token identity = (%q,%q), want (%q,%q)", claims.Subject, claims.Email, resp.User.ID, resp.User.Email)
	}
}

func TestRegisterWithExplicitPlanRoutesToCheckout(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	rec := postJSON(t, app.AuthRegister, "/v1/auth/register", map[string]string{
		"email":    "bob@example.com",
		"password": "correct-horse",
		"plan":     "pro",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Next != "/checkout?plan=pro" {
		t.Fatalf("next = %q, want /checkout?plan=pro", resp.Next)
	}
	if resp.User.PendingPlan == nil || *resp.User.PendingPlan != "pro" {
		t.Fatalf("pending_plan = %v, want pro", resp.User.PendingPlan)
	}
}

func TestRegisterConsumesPreRegistration(t *testing.T) {
	app, _, preRegs, _, _ := newTestApp(t)
	hash := domain.HashEmail("carol@example.com")
	if err := preRegs.Upsert(context.Background(), &domain.PreRegistration{
		EmailHash: hash,
		Email:     "carol@example.com",
		Plan:      domain.PlanStandard,
	}); err != nil {
		t.Fatalf("stage pre-registration: %v", err)
	}

	rec := postJSON(t, app.AuthRegister, "/v1/auth/register", map[string]string{
		"email":    "carol@example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Next != "/checkout?plan=standard" {
		t.Fatalf("next = %q, want /checkout?plan=standard", resp.Next)
	}

	reg, err := preRegs.GetByEmailHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("pre-registration lookup: %v", err)
	}
	if !reg.Used {
		t.Fatalf("pre-registration not flagged used after signup")
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	rec := postJSON(t, app.AuthRegister, "/v1/auth/register", map[string]string{
		"email":    "dave@example.com",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != "weak_password" {
		t.Fatalf("error = %q, want weak_password", resp["error"])
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app, users, _, _, _ := newTestApp(t)
	users.add(&domain.User{Email: "eve@example.com", PasswordHash: "x"})

	rec := postJSON(t, app.AuthRegister, "/v1/auth/register", map[string]string{
		"email":    "eve@example.com",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != "email_exists" {
		t.Fatalf("error = %q, want email_exists", resp["error"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app, users, _, _, _ := newTestApp(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users.add(&domain.User{Email: "frank@example.com", PasswordHash: string(hash), Tier: domain.PlanStandard})

	rec := postJSON(t, app.AuthLogin, "/v1/auth/login", map[string]string{
		"email":    "frank@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != "wrong_password" {
		t.Fatalf("error = %q, want wrong_password", resp["error"])
	}
}

func TestLoginUnknownAccount(t *testing.T) {
	app, _, _, _, _ := newTestApp(t)

	rec := postJSON(t, app.AuthLogin, "/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["error"] != "account_not_found" {
		t.Fatalf("error = %q, want account_not_found", resp["error"])
	}
}

func TestLoginConsolidatesStagedPlan(t *testing.T) {
	app, users, preRegs, _, _ := newTestApp(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := users.add(&domain.User{Email: "grace@example.com", PasswordHash: string(hash), Tier: domain.PlanStandard})
	if err := preRegs.Upsert(context.Background(), &domain.PreRegistration{
		EmailHash: domain.HashEmail("grace@example.com"),
		Email:     "grace@example.com",
		Plan:      domain.PlanPro,
	}); err != nil {
		t.Fatalf("stage pre-registration: %v", err)
	}

	rec := postJSON(t, app.AuthLogin, "/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "right-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Next != "/checkout?plan=pro" {
		t.Fatalf("next = %q, want /checkout?plan=pro", resp.Next)
	}

	stored, err := users.GetByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.PendingPlan == nil || *stored.PendingPlan != domain.PlanPro {
		t.Fatalf("pending plan not persisted at login")
	}
}

func TestLoginPaidUserGoesToDashboard(t *testing.T) {
	app, users, _, _, _ := newTestApp(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	paidAt := testTime
	users.add(&domain.User{
		Email:        "heidi@example.com",
		PasswordHash: string(hash),
		Tier:         domain.PlanPro,
		PaidAt:       &paidAt,
	})

	rec := postJSON(t, app.AuthLogin, "/v1/auth/login", map[string]string{
		"email":    "heidi@example.com",
		"password": "right-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Next != "/dashboard" {
		t.Fatalf("next = %q, want /dashboard", resp.Next)
	}
}
