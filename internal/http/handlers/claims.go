package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/middleware"
)

type claimCreateRequest struct {
	Title   string          `json:"title"`
	Payload json.RawMessage `json:"payload"`
}

type claimDTO struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type claimListResponse struct {
	Claims []claimDTO `json:"claims"`
}

func toClaimDTO(c *domain.Claim) claimDTO {
	return claimDTO{
		ID:        c.ID,
		Title:     c.Title,
		Payload:   c.Payload,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ClaimCreate drafts a new claim, consuming one unit of the user's allowance
// in the same statement that inserts the row. Standard accounts get a single
// claim; pro accounts are uncapped.
func (a *App) ClaimCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req claimCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		a.error(w, http.StatusBadRequest, "bad_request", "payload must be valid JSON")
		return
	}

	claim, err := a.Claims.Create(r.Context(), identity.UserID, title, req.Payload)
	if err != nil {
		if errors.Is(err, domain.ErrClaimLimit) {
			a.error(w, http.StatusForbidden, "claim_limit", "claim allowance exhausted, upgrade to pro for unlimited claims")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", identity.UserID).Msg("create claim failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not create claim")
		return
	}

	a.Logger.Info().Str("user_id", identity.UserID).Str("claim_id", claim.ID).Msg("claim created")
	a.json(w, http.StatusCreated, toClaimDTO(claim))
}

// ClaimList returns the caller's claims, newest first.
func (a *App) ClaimList(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	claims, err := a.Claims.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", identity.UserID).Msg("list claims failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not list claims")
		return
	}

	out := make([]claimDTO, 0, len(claims))
	for i := range claims {
		out = append(out, toClaimDTO(&claims[i]))
	}
	a.json(w, http.StatusOK, claimListResponse{Claims: out})
}

// ClaimGet returns one claim. Ownership is part of the lookup key, so another
// user's claim id answers 404, not 403.
func (a *App) ClaimGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	claimID := chi.URLParam(r, "claimID")
	claim, err := a.Claims.GetByID(r.Context(), claimID, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "claim not found")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", identity.UserID).Msg("load claim failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load claim")
		return
	}

	a.json(w, http.StatusOK, toClaimDTO(claim))
}
