package domain

import "time"

// Sentiment labels derived from the numeric rating at normalization time.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Review is the insertable shape produced by the normalizer. ExternalID is
// the global dedup key: either the source's own review id or a
// "synthetic_"-prefixed deterministic hash when the source omits one.
type Review struct {
	LocationID       int64
	Platform         string
	ExternalID       string
	ReviewerName     *string
	ReviewerPhotoURL *string
	Rating           *float64
	Text             *string
	ReviewDate       *time.Time
	HasResponse      bool
	Status           string
	Sentiment        *string
}
