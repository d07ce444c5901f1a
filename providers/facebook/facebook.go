package facebook

import (
	"context"
	"net/http"
	"net/url"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/internal/httpx"
)

const (
	graphVersion      = "v18.0"
	defaultAuthURL    = "https://www.facebook.com/" + graphVersion + "/dialog/oauth"
	defaultTokenURL   = "https://graph.facebook.com/" + graphVersion + "/oauth/access_token"
	defaultProfileURL = "https://graph.facebook.com/" + graphVersion + "/me/accounts"

	// LongLivedTokenLifetime is assumed when the exchange omits expires_in.
	LongLivedTokenLifetime = 60 * 24 * time.Hour
)

// Config holds Facebook Login configuration.
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

// DefaultScopes returns the scopes needed to publish to a Page.
func DefaultScopes() []string {
	return []string{"public_profile", "pages_show_list", "pages_read_engagement", "pages_manage_posts"}
}

// Adapter implements oauth.PlatformAdapter for Facebook Pages.
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Facebook adapter.
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
	return oauth.PlatformFacebook
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

// RefreshMode reports that renewal re-exchanges the current long-lived token.
func (a *Adapter) RefreshMode() oauth.RefreshMode {
	return oauth.RefreshWithAccessToken
}

// ExchangeCodeForTokens trades the code for a short-lived token and swaps
// it for a long-lived one right away.
func (a *Adapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*oauth.OAuthTokens, error) {
	short, err := a.tokenRequest(ctx, "exchange", url.Values{
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
		"redirect_uri":  {a.config.RedirectURL},
		"code":          {code},
		"code_verifier": {codeVerifier},
	})
	if err != nil {
		return nil, err
	}
	return a.longLived(ctx, "exchange", short.AccessToken)
}

// RefreshAccessToken re-exchanges the current long-lived access token.
func (a *Adapter) RefreshAccessToken(ctx context.Context, accessToken string) (*oauth.OAuthTokens, error) {
	return a.longLived(ctx, "refresh", accessToken)
}

// GetUserProfile returns the first Page the user manages.
func (a *Adapter) GetUserProfile(ctx context.Context, accessToken string) (*oauth.UserProfile, error) {
	resp, err := httpx.Get(ctx, a.httpClient, a.config.ProfileURL,
		url.Values{"fields": {"id,name,username,picture"}},
		httpx.WithBearer(accessToken),
	)
	if err != nil {
		return nil, providerError("profile", 0, "", "", err)
	}
	if !resp.OK() {
		return nil, graphError("profile", resp)
	}

	var pages accountsResponse
	if err := resp.Decode(&pages); err != nil {
		return nil, providerError("profile", resp.Status, "invalid_response", "failed to decode accounts response", err)
	}
	if len(pages.Data) == 0 {
		return nil, oauth.ProfileUnavailable(a.Platform(), "No Facebook Pages found")
	}
	return mapPage(&pages.Data[0]), nil
}

func (a *Adapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	if tokens == nil {
		return nil
	}
	if expiry := oauth.TokenExpiry(tokens, time.Now()); expiry != nil {
		return expiry
	}
	expiry := time.Now().Add(LongLivedTokenLifetime)
	return &expiry
}

func (a *Adapter) longLived(ctx context.Context, operation, token string) (*oauth.OAuthTokens, error) {
	return a.tokenRequest(ctx, operation, url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {a.config.ClientID},
		"client_secret":     {a.config.ClientSecret},
		"fb_exchange_token": {token},
	})
}

func (a *Adapter) tokenRequest(ctx context.Context, operation string, query url.Values) (*oauth.OAuthTokens, error) {
	resp, err := httpx.Get(ctx, a.httpClient, a.config.TokenURL, query)
	if err != nil {
		return nil, providerError(operation, 0, "", "", err)
	}
	if !resp.OK() {
		return nil, graphError(operation, resp)
	}

	var tok tokenResponse
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

func graphError(operation string, resp *httpx.Response) error {
	var body graphErrorBody
	_ = resp.Decode(&body)
	perr := providerError(operation, resp.Status, body.code(), body.Error.Message, nil)
	perr.Body = resp.Text()
	return perr
}

func providerError(operation string, status int, code, description string, err error) *oauth.ProviderError {
	return &oauth.ProviderError{
		Platform:    oauth.PlatformFacebook,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
