package handlers

import "net/http"

// Health answers liveness probes. It deliberately skips the database so a
// blipping pool does not flap the load balancer.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status": "ok",
		"env":    a.Cfg.AppEnv,
	})
}
