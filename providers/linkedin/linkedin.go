package linkedin

import (
	"context"
	"net/http"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/internal/httpx"
	"github.com/noobskies/socialflow-sub001/internal/oauth2x"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL    = "https://www.linkedin.com/oauth/v2/authorization"
	defaultTokenURL   = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultProfileURL = "https://api.linkedin.com/v2/userinfo"
)

// Config holds LinkedIn OAuth configuration.
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

// DefaultScopes returns the OpenID Connect scopes plus member posting.
func DefaultScopes() []string {
	return []string{"openid", "profile", "email", "w_member_social"}
}

// Adapter implements oauth.PlatformAdapter for LinkedIn.
type Adapter struct {
	config     Config
	oauth2     *oauth2.Config
	httpClient *http.Client
}

// New creates a new LinkedIn adapter.
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
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpx.Client(cfg.HTTPClient),
	}
}

func (a *Adapter) Platform() oauth.Platform {
	return oauth.PlatformLinkedIn
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

// RefreshMode reports that LinkedIn tokens can not be renewed without the user.
func (a *Adapter) RefreshMode() oauth.RefreshMode {
	return oauth.RefreshUnsupported
}

func (a *Adapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*oauth.OAuthTokens, error) {
	return oauth2x.Exchange(ctx, a.oauth2, a.httpClient, a.Platform(), code, codeVerifier)
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

	var info userInfo
	if err := resp.Decode(&info); err != nil {
		return nil, providerError("profile", resp.Status, "invalid_response", "failed to decode userinfo response", err)
	}
	return mapProfile(&info)
}

// RefreshAccessToken always fails without contacting LinkedIn.
func (a *Adapter) RefreshAccessToken(context.Context, string) (*oauth.OAuthTokens, error) {
	return nil, oauth.RefreshNotSupported(a.Platform())
}

func (a *Adapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	return oauth.TokenExpiry(tokens, time.Now())
}

func providerError(operation string, status int, code, description string, err error) *oauth.ProviderError {
	return &oauth.ProviderError{
		Platform:    oauth.PlatformLinkedIn,
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Err:         err,
	}
}
