package domain

import "time"

// Typed records decoded at the network boundary. Raw JSON never crosses the
// source adapter; these are the already-validated shapes the rest of the
// pipeline consumes.

type SourceAccount struct {
	ID   string
	Name string
}

type SourceLocation struct {
	ID    string
	Title string
}

// SourceReview is one review as reported by the hosting platform. ExternalID
// and most fields are optional upstream; the normalizer decides what is
// insertable.
type SourceReview struct {
	ExternalID       string
	ReviewerName     string
	ReviewerPhotoURL string
	Rating           *float64
	Text             string
	CreateTime       *time.Time
	HasReply         bool
}

type SourceReviewsPage struct {
	Reviews       []SourceReview
	NextPageToken string
}
