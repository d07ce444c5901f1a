package youtube

import (
	"context"
	"net/http"
	"net/url"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/internal/httpx"
	"github.com/noobskies/socialflow-sub001/internal/oauth2x"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultAPIBaseURL = "https://youtube.googleapis.com/"
	defaultRevokeURL  = "https://oauth2.googleapis.com/revoke"
)

// Config holds Google OAuth configuration for YouTube channels.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	RevokeURL  string
	APIBaseURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the scopes needed to read the channel and upload.
func DefaultScopes() []string {
	return []string{
		"https://www.googleapis.com/auth/youtube.upload",
		"https://www.googleapis.com/auth/youtube.readonly",
	}
}

// Adapter implements oauth.PlatformAdapter for YouTube.
type Adapter struct {
	config     Config
	oauth2     *oauth2.Config
	httpClient *http.Client
}

// New creates a new YouTube adapter.
func New(cfg Config) *Adapter {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = google.Endpoint.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = google.Endpoint.TokenURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = defaultRevokeURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
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
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpx.Client(cfg.HTTPClient),
	}
}

func (a *Adapter) Platform() oauth.Platform {
	return oauth.PlatformYouTube
}

func (a *Adapter) Endpoints() oauth.Endpoints {
	return oauth.Endpoints{
		AuthorizationURL: a.config.AuthURL,
		TokenURL:         a.config.TokenURL,
		ProfileURL:       a.config.APIBaseURL + "youtube/v3/channels",
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

// CustomizeAuthParams implements oauth.AuthParamsCustomizer. Google only
// issues a refresh token on consent when offline access is requested.
func (a *Adapter) CustomizeAuthParams(params url.Values) {
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
}

func (a *Adapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*oauth.OAuthTokens, error) {
	return oauth2x.Exchange(ctx, a.oauth2, a.httpClient, a.Platform(), code, codeVerifier)
}

func (a *Adapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth.OAuthTokens, error) {
	return oauth2x.Refresh(ctx, a.oauth2, a.httpClient, a.Platform(), refreshToken)
}

// GetUserProfile returns the first channel owned by the authenticated user.
func (a *Adapter) GetUserProfile(ctx context.Context, accessToken string) (*oauth.UserProfile, error) {
	channel, err := a.fetchChannel(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, oauth.ProfileUnavailable(a.Platform(), "No YouTube channel found")
	}
	return mapChannel(channel), nil
}

func (a *Adapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	return oauth.TokenExpiry(tokens, time.Now())
}

// RevokeToken implements oauth.TokenRevoker.
func (a *Adapter) RevokeToken(ctx context.Context, token string) error {
	resp, err := httpx.PostForm(ctx, a.httpClient, a.config.RevokeURL, url.Values{"token": {token}})
	if err != nil {
		return providerError("revoke", 0, "", "", err)
	}
	if !resp.OK() {
		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = resp.Decode(&body)
		perr := providerError("revoke", resp.Status, body.Error, body.ErrorDescription, nil)
		perr.Body = resp.Text()
		return perr
	}
	return nil
}

func providerError(operation string, status int, code, description string, err error) *oauth.ProviderError {
	return &oauth.ProviderError{
		Platform:    oauth.PlatformYouTube,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
