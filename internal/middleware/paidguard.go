package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// RequirePaid gates a subtree on reconciled paid status. Three branches:
// no verified identity gets 401 with a sign-in redirect hint, an unpaid user
// (or any status-lookup failure, fail closed) gets 403 with a plan-selection
// redirect hint, a paid user passes through.
func RequirePaid(users domain.UserRepository, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				guardRedirect(w, http.StatusUnauthorized, "unauthorized", "/auth")
				return
			}
			user, err := users.GetByID(r.Context(), identity.UserID)
			if err != nil {
				logger.Error().Err(err).Str("user_id", identity.UserID).Msg("paid status lookup failed")
				guardRedirect(w, http.StatusForbidden, "payment_required", "/plans")
				return
			}
			if !user.Paid() {
				guardRedirect(w, http.StatusForbidden, "payment_required", "/plans")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func guardRedirect(w http.ResponseWriter, status int, code, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "redirect": redirect})
}
