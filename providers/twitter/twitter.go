package twitter

import (
	"context"
	"net/http"
	"net/url"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/internal/httpx"
	"github.com/noobskies/socialflow-sub001/internal/oauth2x"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL    = "https://twitter.com/i/oauth2/authorize"
	defaultTokenURL   = "https://api.twitter.com/2/oauth2/token"
	defaultProfileURL = "https://api.twitter.com/2/users/me"
	defaultRevokeURL  = "https://api.twitter.com/2/oauth2/revoke"
)

// Config holds Twitter/X OAuth 2.0 configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string
	RevokeURL  string

	HTTPClient *http.Client
}

// DefaultScopes returns the scopes needed to publish and stay connected.
func DefaultScopes() []string {
	return []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
}

// Adapter implements oauth.PlatformAdapter for Twitter/X.
type Adapter struct {
	config     Config
	oauth2     *oauth2.Config
	httpClient *http.Client
}

// New creates a new Twitter adapter.
func New(cfg Config) *Adapter {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = defaultRevokeURL
	}

	return &Adapter{
		config: cfg,
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpx.Client(cfg.HTTPClient),
	}
}

func (a *Adapter) Platform() oauth.Platform {
	return oauth.PlatformTwitter
}

func (a *Adapter) Endpoints() oauth.Endpoints {
	return oauth.Endpoints{
		AuthorizationURL: a.config.AuthURL,
		TokenURL:         a.config.TokenURL,
		ProfileURL:       a.config.ProfileURL,
	}
}

func (a *Adapter) Scopes() []string {
	return append([]string(nil), a.config.Scopes...)
}

func (a *Adapter) Credentials() oauth.ProviderCredentials {
	return oauth.ProviderCredentials{ClientID: a.config.ClientID, ClientSecret: a.config.ClientSecret}
}

func (a *Adapter) RefreshMode() oauth.RefreshMode {
	return oauth.RefreshWithRefreshToken
}

// ExchangeCodeForTokens sends credentials as HTTP Basic and repeats
// client_id in the body, as Twitter expects for confidential clients.
func (a *Adapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*oauth.OAuthTokens, error) {
	return oauth2x.Exchange(ctx, a.oauth2, a.httpClient, a.Platform(), code, codeVerifier,
		oauth2.SetAuthURLParam("client_id", a.config.ClientID),
	)
}

func (a *Adapter) GetUserProfile(ctx context.Context, accessToken string) (*oauth.UserProfile, error) {
	resp, err := httpx.Get(ctx, a.httpClient, a.config.ProfileURL,
		url.Values{"user.fields": {"profile_image_url"}},
		httpx.WithBearer(accessToken),
	)
	if err != nil {
		return nil, providerError("profile", 0, "", "", err)
	}
	if !resp.OK() {
		return nil, apiError("profile", resp)
	}

	var payload userResponse
	if err := resp.Decode(&payload); err != nil {
		return nil, providerError("profile", resp.Status, "invalid_response", "failed to decode profile response", err)
	}
	return mapProfile(payload.user())
}

func (a *Adapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth.OAuthTokens, error) {
	return oauth2x.Refresh(ctx, a.oauth2, a.httpClient, a.Platform(), refreshToken)
}

func (a *Adapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	return oauth.TokenExpiry(tokens, time.Now())
}

// RevokeToken implements oauth.TokenRevoker.
func (a *Adapter) RevokeToken(ctx context.Context, token string) error {
	resp, err := httpx.PostForm(ctx, a.httpClient, a.config.RevokeURL,
		url.Values{
			"token":           {token},
			"token_type_hint": {"access_token"},
			"client_id":       {a.config.ClientID},
		},
		httpx.WithBasicAuth(a.config.ClientID, a.config.ClientSecret),
	)
	if err != nil {
		return providerError("revoke", 0, "", "", err)
	}
	if !resp.OK() {
		return apiError("revoke", resp)
	}
	return nil
}

func apiError(operation string, resp *httpx.Response) error {
	var body apiErrorBody
	_ = resp.Decode(&body)
	perr := providerError(operation, resp.Status, body.code(), body.message(), nil)
	perr.Body = resp.Text()
	return perr
}

func providerError(operation string, status int, code, description string, err error) *oauth.ProviderError {
	return &oauth.ProviderError{
		Platform:    oauth.PlatformTwitter,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
