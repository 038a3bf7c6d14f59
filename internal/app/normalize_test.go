package app_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/app"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

func pfloat(f float64) *float64 { return &f }

func testLocation() domain.Location {
	return domain.Location{
		ID:               7,
		OrganizationID:   1,
		GoogleAccountID:  "acc-1",
		GoogleLocationID: "loc-123",
		PlanTier:         domain.TierAgency,
	}
}

func TestSentimentThresholds(t *testing.T) {
	cases := []struct {
		rating *float64
		want   string // "" means nil
	}{
		{pfloat(5), domain.SentimentPositive},
		{pfloat(4), domain.SentimentPositive},
		{pfloat(3.5), domain.SentimentNeutral},
		{pfloat(3), domain.SentimentNeutral},
		{pfloat(2.9), domain.SentimentNegative},
		{pfloat(1), domain.SentimentNegative},
		{nil, ""},
	}
	for _, c := range cases {
		got := app.Sentiment(c.rating)
		if c.want == "" {
			if got != nil {
				t.Fatalf("nil rating: want nil sentiment, got %q", *got)
			}
			continue
		}
		if got == nil || *got != c.want {
			t.Fatalf("rating %v: want %q, got %v", *c.rating, c.want, got)
		}
	}
}

func TestNormalizeReview_KeepsAuthenticID(t *testing.T) {
	date := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	r, ok := app.NormalizeReview(domain.SourceReview{
		ExternalID:   "gbp-review-1",
		ReviewerName: "Dana",
		Rating:       pfloat(5),
		Text:         "great",
		CreateTime:   &date,
		HasReply:     true,
	}, testLocation())
	if !ok {
		t.Fatalf("expected insertable review")
	}
	if r.ExternalID != "gbp-review-1" {
		t.Fatalf("authentic id must be used verbatim, got %q", r.ExternalID)
	}
	if !r.HasResponse || r.LocationID != 7 || r.Platform != "google" {
		t.Fatalf("unexpected mapping: %+v", r)
	}
	if r.Sentiment == nil || *r.Sentiment != domain.SentimentPositive {
		t.Fatalf("rating 5 must be positive")
	}
}

func TestNormalizeReview_SyntheticIDDeterministic(t *testing.T) {
	date := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	raw := domain.SourceReview{
		ReviewerName: "Sam P",
		Rating:       pfloat(2),
		CreateTime:   &date,
	}

	r1, ok := app.NormalizeReview(raw, testLocation())
	if !ok {
		t.Fatalf("expected insertable review")
	}
	r2, _ := app.NormalizeReview(raw, testLocation())

	if !strings.HasPrefix(r1.ExternalID, "synthetic_") {
		t.Fatalf("synthetic id must carry the marker prefix, got %q", r1.ExternalID)
	}
	if r1.ExternalID != r2.ExternalID {
		t.Fatalf("same inputs must reproduce the same id: %q vs %q", r1.ExternalID, r2.ExternalID)
	}
	if r1.Sentiment == nil || *r1.Sentiment != domain.SentimentNegative {
		t.Fatalf("rating 2 must be negative")
	}

	// different reviewer, different id
	raw.ReviewerName = "Sam Q"
	r3, _ := app.NormalizeReview(raw, testLocation())
	if r3.ExternalID == r1.ExternalID {
		t.Fatalf("different inputs must not share a synthetic id")
	}
}

func TestNormalizeReview_BoundaryShiftChangesID(t *testing.T) {
	// "ab"+"c" vs "a"+"bc" would collide under plain concatenation; the
	// length prefix must keep them apart.
	date := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	loc := testLocation()

	loc.GoogleLocationID = "ab"
	r1, _ := app.NormalizeReview(domain.SourceReview{ReviewerName: "c", CreateTime: &date}, loc)

	loc.GoogleLocationID = "a"
	r2, _ := app.NormalizeReview(domain.SourceReview{ReviewerName: "bc", CreateTime: &date}, loc)

	if r1.ExternalID == r2.ExternalID {
		t.Fatalf("length prefixing must prevent boundary-shift collisions")
	}
}

func TestNormalizeReview_SkipsWhenIdentityInsufficient(t *testing.T) {
	date := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	// no id, no reviewer
	if _, ok := app.NormalizeReview(domain.SourceReview{CreateTime: &date, Rating: pfloat(4)}, testLocation()); ok {
		t.Fatalf("missing reviewer must skip")
	}
	// no id, no date
	if _, ok := app.NormalizeReview(domain.SourceReview{ReviewerName: "Dana"}, testLocation()); ok {
		t.Fatalf("missing date must skip")
	}
}
