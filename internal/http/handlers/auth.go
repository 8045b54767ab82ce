package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"server/internal/domain"
	"server/internal/middleware"
)

const (
	tokenTTL          = 24 * time.Hour
	minPasswordLength = 8
)

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
	Plan     string  `json:"plan"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
	Next  string  `json:"next"`
}

type userDTO struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               *string    `json:"name"`
	Tier               string     `json:"tier"`
	PendingPlan        *string    `json:"pending_plan"`
	Paid               bool       `json:"paid"`
	PaidAt             *time.Time `json:"paid_at"`
	SubscriptionStatus *string    `json:"subscription_status"`
	ClaimsUsed         int        `json:"claims_used"`
	ClaimsRemaining    int        `json:"claims_remaining"`
}

func toUserDTO(u *domain.User) userDTO {
	var pending *string
	if u.PendingPlan != nil {
		p := string(*u.PendingPlan)
		pending = &p
	}
	return userDTO{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Tier:               string(u.Tier),
		PendingPlan:        pending,
		Paid:               u.Paid(),
		PaidAt:             u.PaidAt,
		SubscriptionStatus: u.SubscriptionStatus,
		ClaimsUsed:         u.ClaimsUsed,
		ClaimsRemaining:    u.ClaimsRemaining,
	}
}

// AuthRegister creates an account and consolidates any plan selection made
// before signup: an explicit plan in the request wins, then a staged
// pre-registration for the email. The response's next field routes the client
// straight to checkout when a plan is pending, so an anonymous visitor's
// choice is never silently lost.
func (a *App) AuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		a.toastError(w, r, http.StatusBadRequest, "weak_password")
		return
	}
	if req.Plan != "" && !domain.ValidPlan(req.Plan) {
		a.error(w, http.StatusBadRequest, "invalid_plan", "plan must be standard or pro")
		return
	}

	pendingPlan, consumedPreReg := a.resolvePendingPlan(r, email, req.Plan)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.Logger.Error().Err(err).Msg("hash password failed")
		a.toastError(w, r, http.StatusInternalServerError, "generic")
		return
	}

	user, err := a.Users.Create(r.Context(), &domain.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: string(hash),
		PendingPlan:  pendingPlan,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			a.toastError(w, r, http.StatusConflict, "email_exists")
			return
		}
		a.Logger.Error().Err(err).Msg("create user failed")
		a.toastError(w, r, http.StatusInternalServerError, "generic")
		return
	}

	if consumedPreReg {
		if err := a.PreRegs.MarkUsed(r.Context(), domain.HashEmail(email)); err != nil {
			a.Logger.Warn().Err(err).Msg("mark pre-registration used failed")
		}
	}

	token, err := middleware.SignJWT(a.Cfg.JWTSecret, user.ID, user.Email, tokenTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.toastError(w, r, http.StatusInternalServerError, "generic")
		return
	}

	a.json(w, http.StatusCreated, authResponse{
		Token: token,
		User:  toUserDTO(user),
		Next:  nextDestination(user),
	})
}

// AuthLogin authenticates by email/password and reports where the client
// should go next, honoring a pending plan left over from before checkout.
func (a *App) AuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	user, err := a.Users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.toastError(w, r, http.StatusUnauthorized, "account_not_found")
			return
		}
		a.Logger.Error().Err(err).Msg("lookup user failed")
		a.toastError(w, r, http.StatusInternalServerError, "generic")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		a.toastError(w, r, http.StatusUnauthorized, "wrong_password")
		return
	}

	// A pre-registration staged while logged out still counts: fold it into
	// the profile so the checkout redirect survives this session.
	if user.PendingPlan == nil && !user.Paid() {
		if reg, err := a.PreRegs.GetByEmailHash(r.Context(), domain.HashEmail(email)); err == nil {
			if err := a.Users.SetPendingPlan(r.Context(), user.ID, reg.Plan); err == nil {
				plan := reg.Plan
				user.PendingPlan = &plan
			} else {
				a.Logger.Warn().Err(err).Msg("persist pending plan failed")
			}
		}
	}

	token, err := middleware.SignJWT(a.Cfg.JWTSecret, user.ID, user.Email, tokenTTL)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.toastError(w, r, http.StatusInternalServerError, "generic")
		return
	}

	a.json(w, http.StatusOK, authResponse{
		Token: token,
		User:  toUserDTO(user),
		Next:  nextDestination(user),
	})
}

// resolvePendingPlan picks the plan to stage at signup: explicit request plan
// first, then a staged pre-registration. The second return reports whether a
// pre-registration record was the source.
func (a *App) resolvePendingPlan(r *http.Request, email, explicit string) (*domain.Plan, bool) {
	if explicit != "" {
		p := domain.Plan(explicit)
		return &p, false
	}
	reg, err := a.PreRegs.GetByEmailHash(r.Context(), domain.HashEmail(email))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Warn().Err(err).Msg("pre-registration lookup failed")
		}
		return nil, false
	}
	p := reg.Plan
	return &p, true
}

func nextDestination(u *domain.User) string {
	if u.Paid() {
		return "/dashboard"
	}
	if u.PendingPlan != nil {
		return "/checkout?plan=" + string(*u.PendingPlan)
	}
	return "/plans"
}
