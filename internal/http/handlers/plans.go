package handlers

import "net/http"

type planDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PriceGBP    int      `json:"price_gbp"`
	Interval    string   `json:"interval"`
	ClaimLimit  int      `json:"claim_limit"`
	Features    []string `json:"features"`
	UpgradeCost *int     `json:"upgrade_cost_gbp,omitempty"`
}

// Prices are presentation-only; Stripe price objects are the billing source
// of truth.
var planCatalog = []planDTO{
	{
		ID:         "standard",
		Name:       "Standard",
		PriceGBP:   49,
		Interval:   "year",
		ClaimLimit: 1,
		Features: []string{
			"One guided claim",
			"Document checklist",
			"Deadline reminders",
		},
	},
	{
		ID:         "pro",
		Name:       "Pro",
		PriceGBP:   79,
		Interval:   "year",
		ClaimLimit: -1,
		Features: []string{
			"Unlimited claims",
			"Document checklist",
			"Deadline reminders",
			"Priority support",
		},
	},
}

const upgradePriceGBP = 30

// Plans returns the public plan catalog, including the standard-to-pro
// upgrade price.
func (a *App) Plans(w http.ResponseWriter, r *http.Request) {
	plans := make([]planDTO, len(planCatalog))
	copy(plans, planCatalog)
	upgrade := upgradePriceGBP
	for i := range plans {
		if plans[i].ID == "pro" {
			plans[i].UpgradeCost = &upgrade
		}
	}
	a.json(w, http.StatusOK, map[string]any{"plans": plans})
}
