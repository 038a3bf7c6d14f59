package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

const (
	platformGoogle  = "google"
	statusPublished = "published"

	// syntheticPrefix marks derived external ids. Authentic platform ids
	// never carry it, so the two id spaces cannot collide.
	syntheticPrefix = "synthetic_"
	syntheticHexLen = 16
)

// NormalizeReview maps a fetched review onto the insertable row for a
// location. ok=false means the record carries too little identity to dedup
// and must be skipped (counted by the caller, not an error).
func NormalizeReview(raw domain.SourceReview, loc domain.Location) (domain.Review, bool) {
	id := strings.TrimSpace(raw.ExternalID)
	if id == "" {
		var ok bool
		id, ok = syntheticID(loc.GoogleLocationID, raw.ReviewerName, raw.CreateTime)
		if !ok {
			return domain.Review{}, false
		}
	}

	return domain.Review{
		LocationID:       loc.ID,
		Platform:         platformGoogle,
		ExternalID:       id,
		ReviewerName:     ptrStr(raw.ReviewerName),
		ReviewerPhotoURL: ptrStr(raw.ReviewerPhotoURL),
		Rating:           raw.Rating,
		Text:             ptrStr(raw.Text),
		ReviewDate:       raw.CreateTime,
		HasResponse:      raw.HasReply,
		Status:           statusPublished,
		Sentiment:        Sentiment(raw.Rating),
	}, true
}

// syntheticID derives a stable stand-in external id from the location id,
// reviewer name, and review date. Each component is length-prefixed before
// hashing so shifting a boundary between components can never produce the
// same digest input. Deterministic across runs and restarts; that is what
// lets the upsert dedup a re-fetched id-less review.
func syntheticID(locationID, reviewer string, date *time.Time) (string, bool) {
	if locationID == "" || strings.TrimSpace(reviewer) == "" || date == nil {
		return "", false
	}
	var b strings.Builder
	for _, part := range []string{locationID, reviewer, date.UTC().Format(time.RFC3339)} {
		fmt.Fprintf(&b, "%d:%s", len(part), part)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return syntheticPrefix + hex.EncodeToString(sum[:])[:syntheticHexLen], true
}

// Sentiment classifies a numeric rating: >=4 positive, >=3 neutral, else
// negative. A nil rating yields nil, not a default.
func Sentiment(rating *float64) *string {
	if rating == nil {
		return nil
	}
	var s string
	switch {
	case *rating >= 4:
		s = domain.SentimentPositive
	case *rating >= 3:
		s = domain.SentimentNeutral
	default:
		s = domain.SentimentNegative
	}
	return &s
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
