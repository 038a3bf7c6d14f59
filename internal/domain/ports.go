package domain

import (
	"context"
	"time"
)

type PollRepository interface {
	// Read paths
	ListActiveLocations(ctx context.Context, limit int) ([]Location, error)
	// FindCredentialHolder returns the organization's first user (by
	// insertion order) holding a non-null refresh secret, or nil when the
	// organization has none.
	FindCredentialHolder(ctx context.Context, orgID int64) (*CredentialHolder, error)
	GetPollStates(ctx context.Context) (map[Tier]time.Time, error)

	// Write paths
	UpsertReviews(ctx context.Context, rs []Review) error
	UpsertPollState(ctx context.Context, tier Tier, at time.Time) error
	ClearRefreshSecret(ctx context.Context, userID int64) error
}

type ReviewSource interface {
	ListAccounts(ctx context.Context, token string) ([]SourceAccount, error)
	ListLocations(ctx context.Context, token, accountID string) ([]SourceLocation, error)
	ListReviews(ctx context.Context, token, accountID, locationID string, pageSize int, pageToken string) (SourceReviewsPage, error)
	ReplyToReview(ctx context.Context, token, accountID, locationID, reviewID, comment string) error
}

// CredentialVault turns a stored encrypted refresh secret into a short-lived
// access token. Failure kinds matter: ErrCiphertextCorrupt and
// ErrCredentialRevoked mean the secret must be cleared; anything else is
// transient and the secret is kept.
type CredentialVault interface {
	AccessToken(ctx context.Context, orgID int64, encryptedSecret []byte) (string, error)
}

// TokenCache holds exchanged access tokens across invocations, keyed by
// organization. Best-effort: a miss or a cache failure just means a fresh
// exchange.
type TokenCache interface {
	Get(ctx context.Context, orgID int64) (string, bool, error)
	Set(ctx context.Context, orgID int64, token string, ttl time.Duration) error
}
