package domain

import "time"

// Tier is an organization's subscription level; it controls poll cadence.
type Tier string

const (
	TierAgency  Tier = "agency"
	TierGrowth  Tier = "growth"
	TierStarter Tier = "starter"
)

// Tiers lists all tiers in cadence order, finest first.
var Tiers = []Tier{TierAgency, TierGrowth, TierStarter}

// NormalizeTier maps an unknown, empty, or null plan value to starter.
// The defaulting lives here, at the boundary where the organization row is
// read, so scheduling logic never sees an unrecognized tier.
func NormalizeTier(plan string) Tier {
	switch Tier(plan) {
	case TierAgency, TierGrowth:
		return Tier(plan)
	default:
		return TierStarter
	}
}

// Location is a customer's review-bearing listing on the external platform.
// Rows are owned by the location-sync feature; this pipeline only reads them.
type Location struct {
	ID               int64
	OrganizationID   int64
	GoogleAccountID  string
	GoogleLocationID string
	Name             string
	PlanTier         Tier // joined from organizations at query time, already normalized
}

// CredentialHolder is the organization user whose encrypted refresh secret
// authenticates API calls for all of that organization's locations.
type CredentialHolder struct {
	UserID         int64
	OrganizationID int64
	RefreshSecret  []byte // encrypted; nil when the user never connected
}

// PollState is the per-tier watermark row.
type PollState struct {
	Tier            Tier
	LastProcessedAt time.Time
}
