package reddit

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	tokenURL = "https://www.reddit.com/api/v1/access_token"
	apiBase  = "https://oauth.reddit.com"
)

// Credentials holds the script-app credentials for a session. Username and
// password are optional; without them the session is read-only and cannot
// send direct messages.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Username     string
	Password     string
}

// Session is an authenticated Reddit API session. It is passed explicitly
// into the collector and the outreach scheduler rather than held as ambient
// state.
type Session struct {
	httpClient  *http.Client
	userAgent   string
	rateLimiter *rateLimiter
	readOnly    bool
}

// NewSession creates a new authenticated session. When a username and
// password are present it uses the password grant, which is what message
// sending requires; otherwise it falls back to an app-only token.
func NewSession(creds Credentials) (*Session, error) {
	ctx := context.Background()

	var ts oauth2.TokenSource
	readOnly := false
	if creds.Username != "" && creds.Password != "" {
		conf := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		token, err := conf.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
		if err != nil {
			return nil, err
		}
		ts = conf.TokenSource(ctx, token)
	} else {
		conf := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ts = conf.TokenSource(ctx)
		readOnly = true
	}

	client := oauth2.NewClient(ctx, ts)
	client.Timeout = 30 * time.Second

	return &Session{
		httpClient:  client,
		userAgent:   creds.UserAgent,
		rateLimiter: newRateLimiter(),
		readOnly:    readOnly,
	}, nil
}

// ReadOnly reports whether the session lacks a user identity.
func (s *Session) ReadOnly() bool {
	return s.readOnly
}
