package pinterest

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/internal/httpx"
	"github.com/noobskies/socialflow-sub001/internal/oauth2x"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL    = "https://www.pinterest.com/oauth/"
	defaultTokenURL   = "https://api.pinterest.com/v5/oauth/token"
	defaultProfileURL = "https://api.pinterest.com/v5/user_account"
)

// Config holds Pinterest OAuth configuration.
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

// DefaultScopes returns the scopes needed to publish pins.
func DefaultScopes() []string {
	return []string{"boards:read", "pins:read", "pins:write", "user_accounts:read"}
}

// Adapter implements oauth.PlatformAdapter for Pinterest.
type Adapter struct {
	config     Config
	oauth2     *oauth2.Config
	httpClient *http.Client
}

// New creates a new Pinterest adapter.
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
	return oauth.PlatformPinterest
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

// CustomizeAuthParams implements oauth.AuthParamsCustomizer.
func (a *Adapter) CustomizeAuthParams(params url.Values) {
	params.Set("scope", strings.Join(a.config.Scopes, ","))
}

func (a *Adapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*oauth.OAuthTokens, error) {
	return oauth2x.Exchange(ctx, a.oauth2, a.httpClient, a.Platform(), code, codeVerifier)
}

func (a *Adapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth.OAuthTokens, error) {
	return oauth2x.Refresh(ctx, a.oauth2, a.httpClient, a.Platform(), refreshToken)
}

func (a *Adapter) GetUserProfile(ctx context.Context, accessToken string) (*oauth.UserProfile, error) {
	resp, err := httpx.Get(ctx, a.httpClient, a.config.ProfileURL, nil, httpx.WithBearer(accessToken))
	if err != nil {
		return nil, providerError("profile", 0, "", "", err)
	}
	if !resp.OK() {
		var body apiErrorBody
		_ = resp.Decode(&body)
		perr := providerError("profile", resp.Status, body.code(), body.Message, nil)
		perr.Body = resp.Text()
		return nil, perr
	}

	var account userAccount
	if err := resp.Decode(&account); err != nil {
		return nil, providerError("profile", resp.Status, "invalid_response", "failed to decode user account response", err)
	}
	return mapProfile(&account)
}

func (a *Adapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	return oauth.TokenExpiry(tokens, time.Now())
}

func providerError(operation string, status int, code, description string, err error) *oauth.ProviderError {
	return &oauth.ProviderError{
		Platform:    oauth.PlatformPinterest,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
