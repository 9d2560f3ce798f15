package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "community-overlap/internal/errors"
)

// composeResponse is the api_type=json envelope around compose results.
type composeResponse struct {
	JSON struct {
		Errors [][]interface{} `json:"errors"`
	} `json:"json"`
}

// SendDirectMessage sends a private message to recipient. A RATELIMIT error
// from the API is returned as a rate-limited error carrying the server's
// wait hint verbatim.
func (s *Session) SendDirectMessage(ctx context.Context, recipient, subject, body string) error {
	if s.readOnly {
		return apperrors.NewUnauthorizedError("session has no user identity")
	}
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("to", recipient)
	form.Set("subject", subject)
	form.Set("text", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/api/compose", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	s.rateLimiter.UpdateFromResponse(resp)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewUnauthorizedError(fmt.Sprintf("status %d sending to %s", resp.StatusCode, recipient))
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError(string(raw))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("status %d sending to %s", resp.StatusCode, recipient)
	}

	var composed composeResponse
	if err := json.Unmarshal(raw, &composed); err != nil {
		return fmt.Errorf("malformed compose response: %w", err)
	}
	for _, e := range composed.JSON.Errors {
		msg := flattenError(e)
		if strings.Contains(strings.ToUpper(msg), "RATELIMIT") {
			return apperrors.NewRateLimitedError(msg)
		}
		return fmt.Errorf("compose rejected: %s", msg)
	}
	return nil
}

func flattenError(parts []interface{}) string {
	strs := make([]string, 0, len(parts))
	for _, p := range parts {
		if s, ok := p.(string); ok {
			strs = append(strs, s)
		}
	}
	return strings.Join(strs, " ")
}

// ProbeAuthenticated checks that the session holds a valid user identity.
// It hits the scopes endpoint rather than fetching the caller's own profile,
// which is known to fail spuriously under script-app tokens.
func (s *Session) ProbeAuthenticated(ctx context.Context) bool {
	if s.readOnly {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"/api/v1/scopes", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	s.rateLimiter.UpdateFromResponse(resp)
	return resp.StatusCode == http.StatusOK
}
