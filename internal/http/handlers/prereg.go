package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"server/internal/domain"
)

type preRegRequest struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

type preRegData struct {
	Plan string `json:"plan"`
	Used bool   `json:"used"`
}

type preRegResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *preRegData `json:"data,omitempty"`
}

// PreRegCreate stages a plan choice for a visitor who has not signed up yet.
// The record is keyed by an email hash and folded into the account at signup
// or next login. Re-posting overwrites the previous choice.
func (a *App) PreRegCreate(w http.ResponseWriter, r *http.Request) {
	var req preRegRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "a valid email is required")
		return
	}
	if !domain.ValidPlan(req.Plan) {
		a.error(w, http.StatusBadRequest, "invalid_plan", "plan must be standard or pro")
		return
	}

	err := a.PreRegs.Upsert(r.Context(), &domain.PreRegistration{
		EmailHash: domain.HashEmail(email),
		Email:     email,
		Plan:      domain.Plan(req.Plan),
	})
	if err != nil {
		a.Logger.Error().Err(err).Msg("stage pre-registration failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not save plan choice")
		return
	}

	a.json(w, http.StatusCreated, preRegResponse{Success: true, Message: "plan choice saved"})
}

// PreRegLookup returns the staged plan for an email, if any. The email arrives
// as a query parameter and only the plan comes back, never the stored address.
func (a *App) PreRegLookup(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if email == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "email is required")
		return
	}

	reg, err := a.PreRegs.GetByEmailHash(r.Context(), domain.HashEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no plan staged for that email")
			return
		}
		a.Logger.Error().Err(err).Msg("pre-registration lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not look up plan choice")
		return
	}

	a.json(w, http.StatusOK, preRegResponse{Success: true, Data: &preRegData{Plan: string(reg.Plan), Used: reg.Used}})
}
