package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/observability"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

// OAuthExchanger trades a long-lived refresh token for a short-lived access
// token at the identity provider's token endpoint.
type OAuthExchanger struct {
	tokenURL     string
	clientID     string
	clientSecret string
	hc           *http.Client
}

func NewOAuthExchanger(tokenURL, clientID, clientSecret string) *OAuthExchanger {
	return &OAuthExchanger{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		hc:           &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenPayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange returns the access token and its lifetime. A 4xx whose body names
// the grant as invalid/revoked comes back as domain.ErrCredentialRevoked so
// the caller clears the stored secret; any other failure is transient and
// the secret is kept.
func (o *OAuthExchanger) Exchange(ctx context.Context, refreshToken string) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {o.clientID},
		"client_secret": {o.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := o.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("oauth", "token", 0, time.Since(start))
		return "", 0, fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("oauth", "token", resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", 0, fmt.Errorf("token endpoint read: %w", err)
	}
	// Error bodies are best-effort JSON (providers return HTML error pages
	// too), so the decode error only matters on the success path.
	var p tokenPayload
	decodeErr := json.Unmarshal(body, &p)

	switch {
	case resp.StatusCode == http.StatusOK:
		if decodeErr != nil {
			return "", 0, fmt.Errorf("token endpoint: malformed response: %v", decodeErr)
		}
		if p.AccessToken == "" {
			return "", 0, fmt.Errorf("token endpoint: response missing access_token")
		}
		ttl := time.Duration(p.ExpiresIn) * time.Second
		return p.AccessToken, ttl, nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusBadRequest && p.Error == "invalid_grant":
		// The provider says the refresh token itself is dead, not that we
		// asked badly. Retrying next run cannot succeed.
		return "", 0, fmt.Errorf("%w: %s %s", domain.ErrCredentialRevoked, p.Error, p.ErrorDesc)
	default:
		return "", 0, fmt.Errorf("token endpoint %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
