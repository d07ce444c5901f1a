package tiktok

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/internal/httpx"
)

const (
	defaultAuthURL    = "https://www.tiktok.com/v2/auth/authorize/"
	defaultTokenURL   = "https://open.tiktokapis.com/v2/oauth/token/"
	defaultProfileURL = "https://open.tiktokapis.com/v2/user/info/"

	profileFields = "open_id,union_id,avatar_url,display_name,username"
)

// Config holds TikTok Login Kit configuration. ClientID is the TikTok
// client key.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the scopes needed to upload and publish videos.
func DefaultScopes() []string {
	return []string{"user.info.basic", "user.info.profile", "video.upload", "video.publish"}
}

// Adapter implements oauth.PlatformAdapter for TikTok.
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// New creates a new TikTok adapter.
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

	return &Adapter{
		config:     cfg,
		httpClient: httpx.Client(cfg.HTTPClient),
	}
}

func (a *Adapter) Platform() oauth.Platform {
	return oauth.PlatformTikTok
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

// CustomizeAuthParams implements oauth.AuthParamsCustomizer. TikTok names
// the client id client_key and expects comma separated scopes.
func (a *Adapter) CustomizeAuthParams(params url.Values) {
	params.Del("client_id")
	params.Set("client_key", a.config.ClientID)
	params.Set("scope", strings.Join(a.config.Scopes, ","))
}

func (a *Adapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*oauth.OAuthTokens, error) {
	return a.tokenRequest(ctx, "exchange", url.Values{
		"client_key":    {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {a.config.RedirectURL},
		"code_verifier": {codeVerifier},
	})
}

func (a *Adapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth.OAuthTokens, error) {
	return a.tokenRequest(ctx, "refresh", url.Values{
		"client_key":    {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

func (a *Adapter) GetUserProfile(ctx context.Context, accessToken string) (*oauth.UserProfile, error) {
	resp, err := httpx.Get(ctx, a.httpClient, a.config.ProfileURL,
		url.Values{"fields": {profileFields}},
		httpx.WithBearer(accessToken),
	)
	if err != nil {
		return nil, providerError("profile", 0, "", "", err)
	}

	var payload userInfoResponse
	decodeErr := resp.Decode(&payload)
	if payload.Error.failed() {
		perr := providerError("profile", resp.Status, payload.Error.Code, payload.Error.Message, nil)
		perr.Body = resp.Text()
		return nil, perr
	}
	if !resp.OK() {
		perr := providerError("profile", resp.Status, "", "", nil)
		perr.Body = resp.Text()
		return nil, perr
	}
	if decodeErr != nil {
		return nil, providerError("profile", resp.Status, "invalid_response", "failed to decode user info response", decodeErr)
	}
	return mapProfile(&payload.Data.User)
}

func (a *Adapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	return oauth.TokenExpiry(tokens, time.Now())
}

func (a *Adapter) tokenRequest(ctx context.Context, operation string, form url.Values) (*oauth.OAuthTokens, error) {
	resp, err := httpx.PostForm(ctx, a.httpClient, a.config.TokenURL, form,
		httpx.WithHeader("Cache-Control", "no-cache"),
	)
	if err != nil {
		return nil, providerError(operation, 0, "", "", err)
	}

	var payload tokenResponse
	decodeErr := resp.Decode(&payload)
	if code, desc, failed := payload.failure(); failed {
		perr := providerError(operation, resp.Status, code, desc, nil)
		perr.Body = resp.Text()
		return nil, perr
	}
	if !resp.OK() {
		perr := providerError(operation, resp.Status, "", "", nil)
		perr.Body = resp.Text()
		return nil, perr
	}
	if decodeErr != nil {
		return nil, providerError(operation, resp.Status, "invalid_response", "failed to decode token response", decodeErr)
	}

	tok := payload.token()
	if tok.AccessToken == "" {
		return nil, providerError(operation, resp.Status, "missing_access_token", "missing access token", nil)
	}

	return &oauth.OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
		TokenType:    tok.TokenType,
		Scope:        tok.Scope,
	}, nil
}

func providerError(operation string, status int, code, description string, err error) *oauth.ProviderError {
	return &oauth.ProviderError{
		Platform:    oauth.PlatformTikTok,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
