// internal/adapters/google/client.go
package google

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/observability"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

// Client talks to the Business Profile review API. Raw JSON is decoded into
// typed payloads here and nowhere else; callers only ever see
// domain.Source* records or a *domain.SourceError.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// ---- wire payloads ----

type accountsPayload struct {
	Accounts []struct {
		Name        string `json:"name"` // "accounts/{id}"
		AccountName string `json:"accountName"`
	} `json:"accounts"`
}

type locationsPayload struct {
	Locations []struct {
		Name  string `json:"name"` // "accounts/{a}/locations/{l}"
		Title string `json:"title"`
	} `json:"locations"`
}

type reviewsPayload struct {
	Reviews []struct {
		ReviewID string `json:"reviewId"`
		Reviewer struct {
			DisplayName     string `json:"displayName"`
			ProfilePhotoURL string `json:"profilePhotoUrl"`
		} `json:"reviewer"`
		StarRating string     `json:"starRating"` // "ONE".."FIVE"
		Comment    string     `json:"comment"`
		CreateTime *time.Time `json:"createTime"`
		Reply      *struct {
			Comment string `json:"comment"`
		} `json:"reviewReply"`
	} `json:"reviews"`
	NextPageToken string `json:"nextPageToken"`
}

var starRatings = map[string]float64{
	"ONE": 1, "TWO": 2, "THREE": 3, "FOUR": 4, "FIVE": 5,
}

// ---- public API ----

func (c *Client) ListAccounts(ctx context.Context, token string) ([]domain.SourceAccount, error) {
	var p accountsPayload
	if err := c.get(ctx, token, c.base+"/accounts", "accounts", &p); err != nil {
		return nil, err
	}
	out := make([]domain.SourceAccount, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		out = append(out, domain.SourceAccount{ID: lastSegment(a.Name), Name: a.AccountName})
	}
	return out, nil
}

func (c *Client) ListLocations(ctx context.Context, token, accountID string) ([]domain.SourceLocation, error) {
	u := fmt.Sprintf("%s/accounts/%s/locations", c.base, url.PathEscape(accountID))
	var p locationsPayload
	if err := c.get(ctx, token, u, "locations", &p); err != nil {
		return nil, err
	}
	out := make([]domain.SourceLocation, 0, len(p.Locations))
	for _, l := range p.Locations {
		out = append(out, domain.SourceLocation{ID: lastSegment(l.Name), Title: l.Title})
	}
	return out, nil
}

func (c *Client) ListReviews(ctx context.Context, token, accountID, locationID string, pageSize int, pageToken string) (domain.SourceReviewsPage, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	u := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews?pageSize=%d",
		c.base, url.PathEscape(accountID), url.PathEscape(locationID), pageSize)
	if pageToken != "" {
		u += "&pageToken=" + url.QueryEscape(pageToken)
	}
	var p reviewsPayload
	if err := c.get(ctx, token, u, "reviews", &p); err != nil {
		return domain.SourceReviewsPage{}, err
	}

	page := domain.SourceReviewsPage{NextPageToken: p.NextPageToken}
	for _, r := range p.Reviews {
		rev := domain.SourceReview{
			ExternalID:       r.ReviewID,
			ReviewerName:     r.Reviewer.DisplayName,
			ReviewerPhotoURL: r.Reviewer.ProfilePhotoURL,
			Text:             r.Comment,
			CreateTime:       r.CreateTime,
			HasReply:         r.Reply != nil && r.Reply.Comment != "",
		}
		if v, ok := starRatings[strings.ToUpper(r.StarRating)]; ok {
			f := v
			rev.Rating = &f
		} else if f, err := strconv.ParseFloat(r.StarRating, 64); err == nil {
			rev.Rating = &f
		}
		page.Reviews = append(page.Reviews, rev)
	}
	return page, nil
}

func (c *Client) ReplyToReview(ctx context.Context, token, accountID, locationID, reviewID, comment string) error {
	u := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews/%s/reply",
		c.base, url.PathEscape(accountID), url.PathEscape(locationID), url.PathEscape(reviewID))
	body, err := json.Marshal(map[string]string{"comment": comment})
	if err != nil {
		return err
	}
	return c.do(ctx, token, http.MethodPut, u, "reply", strings.NewReader(string(body)), nil)
}

// ---- internals ----

func (c *Client) get(ctx context.Context, token, url, endpoint string, out any) error {
	return c.do(ctx, token, http.MethodGet, url, endpoint, nil, out)
}

// do performs a request with client-side rate limiting, retries, and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After
// when provided. Non-retryable statuses come back as *domain.SourceError.
func (c *Client) do(ctx context.Context, token, method, url, endpoint string, body io.Reader, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		b, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// fresh request each attempt
		var rdr io.Reader
		if payload != nil {
			rdr = strings.NewReader(string(payload))
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rdr)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("gbp", endpoint, 0, time.Since(start))
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("gbp", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				return nil
			}
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return &domain.SourceError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &domain.SourceError{Status: resp.StatusCode, Message: "transient upstream failure"}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &domain.SourceError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		}
	}

	return lastErr
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
