package dto

// UpgradeRequest is the body of POST /api/billing/upgrade.
type UpgradeRequest struct {
	NewPlanCode string `json:"newPlanCode"`
}

// PlanResponse is one catalog entry as shown to clients.
type PlanResponse struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	MonthlyPrice string `json:"monthly_price"`
	Purchasable  bool   `json:"purchasable"`
}

// SetPriceRequest updates a plan's Stripe price id (admin).
type SetPriceRequest struct {
	StripePriceID string `json:"stripe_price_id"`
}
