package models

import "time"

// Usage is the current count of a capped resource and its limit.
// A limit of -1 means unlimited.
type Usage struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// UsageReport summarises a tenant's subscription state.
type UsageReport struct {
	TenantID     string     `json:"tenantId"`
	Plan         string     `json:"plan"`
	Users        Usage      `json:"users"`
	Products     Usage      `json:"products"`
	TrialEndsAt  *time.Time `json:"trialEndsAt,omitempty"`
	TrialExpired bool       `json:"trialExpired"`
}
