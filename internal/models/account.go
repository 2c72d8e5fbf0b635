package models

// Plan is the subscription tier of an account.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Account is the identity provider's view of a user, resolved per request.
type Account struct {
	ID    string `json:"id"`
	Plan  Plan   `json:"plan"`
	Usage int    `json:"free_usage"`
}

func (a Account) IsPremium() bool {
	return a.Plan == PlanPremium
}
