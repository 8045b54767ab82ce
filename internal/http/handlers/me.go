package handlers

import (
	"errors"
	"net/http"

	"server/internal/domain"
	"server/internal/middleware"
)

// Me returns the authenticated user's profile. The client calls this on load
// to rehydrate its session; payment state here is informational, the route
// guard stays authoritative.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
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
		a.Logger.Error().Err(err).Msg("load profile failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not load profile")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
		"next": nextDestination(user),
	})
}
