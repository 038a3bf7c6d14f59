package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpserver "github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/http_server"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/app"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

// Minimal dependency fakes: an empty tenant base exercises the full
// trigger path without network or storage.

type emptyRepo struct{}

func (emptyRepo) ListActiveLocations(ctx context.Context, limit int) ([]domain.Location, error) {
	return nil, nil
}
func (emptyRepo) FindCredentialHolder(ctx context.Context, orgID int64) (*domain.CredentialHolder, error) {
	return nil, nil
}
func (emptyRepo) GetPollStates(ctx context.Context) (map[domain.Tier]time.Time, error) {
	return map[domain.Tier]time.Time{}, nil
}
func (emptyRepo) UpsertReviews(ctx context.Context, rs []domain.Review) error { return nil }
func (emptyRepo) UpsertPollState(ctx context.Context, tier domain.Tier, at time.Time) error {
	return nil
}
func (emptyRepo) ClearRefreshSecret(ctx context.Context, userID int64) error { return nil }

type noSource struct{}

func (noSource) ListAccounts(ctx context.Context, token string) ([]domain.SourceAccount, error) {
	return nil, nil
}
func (noSource) ListLocations(ctx context.Context, token, accountID string) ([]domain.SourceLocation, error) {
	return nil, nil
}
func (noSource) ListReviews(ctx context.Context, token, accountID, locationID string, pageSize int, pageToken string) (domain.SourceReviewsPage, error) {
	return domain.SourceReviewsPage{}, nil
}
func (noSource) ReplyToReview(ctx context.Context, token, accountID, locationID, reviewID, comment string) error {
	return nil
}

type noVault struct{}

func (noVault) AccessToken(ctx context.Context, orgID int64, enc []byte) (string, error) {
	return "", nil
}

func newTestServer(secret string) http.Handler {
	poll := app.NewPollService(emptyRepo{}, noSource{}, noVault{}, 50, 50)
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Poll: poll, CronSecret: secret})
	return srv.Mux()
}

func TestPollTrigger_RejectsBadSecret(t *testing.T) {
	h := newTestServer("s3cret")

	// the bare secret and other scheme-less or wrong-scheme headers must
	// all be rejected, not just a wrong secret
	for _, auth := range []string{"", "Bearer wrong", "s3cret", "Basic s3cret", "bearer s3cret"} {
		req := httptest.NewRequest(http.MethodGet, "/jobs/poll-reviews", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("auth %q: expected 401, got %d", auth, rr.Code)
		}
	}
}

func TestPollTrigger_RunsWithSecret(t *testing.T) {
	h := newTestServer("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/jobs/poll-reviews", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var rep app.RunReport
	if err := json.NewDecoder(rr.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !rep.Success || rep.Message != "no active locations" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Timestamp == "" {
		t.Fatalf("timestamp missing")
	}
	if rep.Errors == nil {
		t.Fatalf("errors must serialize as an array, not null")
	}
}

func TestPollTrigger_NoSecretConfigured(t *testing.T) {
	h := newTestServer("")

	req := httptest.NewRequest(http.MethodGet, "/jobs/poll-reviews", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("open trigger expected 200, got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer("")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}
