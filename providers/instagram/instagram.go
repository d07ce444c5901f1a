package instagram

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
	defaultAuthURL      = "https://www.instagram.com/oauth/authorize"
	defaultTokenURL     = "https://api.instagram.com/oauth/access_token"
	defaultExchangeURL  = "https://graph.instagram.com/access_token"
	defaultRefreshURL   = "https://graph.instagram.com/refresh_access_token"
	defaultProfileURL   = "https://graph.instagram.com/me"
	longLivedTokenRenew = 60 * 24 * time.Hour
)

// Config holds Instagram Login configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	ExchangeURL string
	RefreshURL  string
	ProfileURL  string

	HTTPClient *http.Client
}

// DefaultScopes returns the business scopes needed to publish media.
func DefaultScopes() []string {
	return []string{"instagram_business_basic", "instagram_business_content_publish"}
}

// Adapter implements oauth.PlatformAdapter for Instagram.
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Instagram adapter.
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
	if cfg.ExchangeURL == "" {
		cfg.ExchangeURL = defaultExchangeURL
	}
	if cfg.RefreshURL == "" {
		cfg.RefreshURL = defaultRefreshURL
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
	return oauth.PlatformInstagram
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
	return oauth.RefreshWithAccessToken
}

// CustomizeAuthParams implements oauth.AuthParamsCustomizer. Instagram
// expects comma separated scopes.
func (a *Adapter) CustomizeAuthParams(params url.Values) {
	params.Set("scope", strings.Join(a.config.Scopes, ","))
}

// ExchangeCodeForTokens posts the code, then upgrades the short-lived
// token with ig_exchange_token.
func (a *Adapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*oauth.OAuthTokens, error) {
	resp, err := httpx.PostForm(ctx, a.httpClient, a.config.TokenURL, url.Values{
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {a.config.RedirectURL},
		"code":          {code},
		"code_verifier": {codeVerifier},
	})
	if err != nil {
		return nil, providerError("exchange", 0, "", "", err)
	}
	if !resp.OK() {
		return nil, apiError("exchange", resp)
	}

	var short shortTokenResponse
	if err := resp.Decode(&short); err != nil {
		return nil, providerError("exchange", resp.Status, "invalid_response", "failed to decode token response", err)
	}
	token := short.token()
	if token == "" {
		return nil, providerError("exchange", resp.Status, "missing_access_token", "missing access token", nil)
	}

	return a.graphToken(ctx, "exchange", a.config.ExchangeURL, url.Values{
		"grant_type":    {"ig_exchange_token"},
		"client_secret": {a.config.ClientSecret},
		"access_token":  {token},
	})
}

// RefreshAccessToken renews the current long-lived token.
func (a *Adapter) RefreshAccessToken(ctx context.Context, accessToken string) (*oauth.OAuthTokens, error) {
	return a.graphToken(ctx, "refresh", a.config.RefreshURL, url.Values{
		"grant_type":   {"ig_refresh_token"},
		"access_token": {accessToken},
	})
}

func (a *Adapter) GetUserProfile(ctx context.Context, accessToken string) (*oauth.UserProfile, error) {
	resp, err := httpx.Get(ctx, a.httpClient, a.config.ProfileURL,
		url.Values{"fields": {"id,user_id,username,name,profile_picture_url"}},
		httpx.WithBearer(accessToken),
	)
	if err != nil {
		return nil, providerError("profile", 0, "", "", err)
	}
	if !resp.OK() {
		return nil, apiError("profile", resp)
	}

	var user igUser
	if err := resp.Decode(&user); err != nil {
		return nil, providerError("profile", resp.Status, "invalid_response", "failed to decode profile response", err)
	}
	return mapProfile(&user)
}

func (a *Adapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	if tokens == nil {
		return nil
	}
	if expiry := oauth.TokenExpiry(tokens, time.Now()); expiry != nil {
		return expiry
	}
	expiry := time.Now().Add(longLivedTokenRenew)
	return &expiry
}

func (a *Adapter) graphToken(ctx context.Context, operation, endpoint string, query url.Values) (*oauth.OAuthTokens, error) {
	resp, err := httpx.Get(ctx, a.httpClient, endpoint, query)
	if err != nil {
		return nil, providerError(operation, 0, "", "", err)
	}
	if !resp.OK() {
		return nil, apiError(operation, resp)
	}

	var tok longTokenResponse
	if err := resp.Decode(&tok); err != nil {
		return nil, providerError(operation, resp.Status, "invalid_response", "failed to decode token response", err)
	}
	if tok.AccessToken == "" {
		return nil, providerError(operation, resp.Status, "missing_access_token", "missing access token", nil)
	}

	return &oauth.OAuthTokens{
		AccessToken: tok.AccessToken,
		ExpiresIn:   tok.ExpiresIn,
		TokenType:   tok.TokenType,
	}, nil
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
		Platform:    oauth.PlatformInstagram,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
