package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"server/internal/billing"
	"server/internal/domain"
	"server/internal/infra"
)

// App bundles the dependencies every handler needs. All collaborators are
// injected at startup; nothing here reaches for globals.
type App struct {
	Cfg     *infra.Config
	Logger  zerolog.Logger
	Users   domain.UserRepository
	PreRegs domain.PreRegRepository
	Claims  domain.ClaimRepository
	Billing billing.Provider // nil when STRIPE_SECRET_KEY is unset
	Now     func() time.Time
}

// NewApp wires the handler container from the shared SQL executor.
func NewApp(cfg *infra.Config, logger zerolog.Logger, users domain.UserRepository, preRegs domain.PreRegRepository, claims domain.ClaimRepository, provider billing.Provider) *App {
	return &App{
		Cfg:     cfg,
		Logger:  logger,
		Users:   users,
		PreRegs: preRegs,
		Claims:  claims,
		Billing: provider,
		Now:     time.Now,
	}
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]string{"error": slug, "message": message})
}
