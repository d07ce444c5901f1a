package oauth

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// ProviderCredentials are the client credentials registered with a platform.
type ProviderCredentials struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
}

// Configured reports whether both values are present.
func (c ProviderCredentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// PlatformAdapter encapsulates the wire contract of one platform.
type PlatformAdapter interface {
	Platform() Platform
	Endpoints() Endpoints
	Scopes() []string
	Credentials() ProviderCredentials
	RefreshMode() RefreshMode

	// ExchangeCodeForTokens trades an authorization code plus PKCE verifier.
	ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*OAuthTokens, error)

	// GetUserProfile resolves the identity owning accessToken.
	GetUserProfile(ctx context.Context, accessToken string) (*UserProfile, error)

	// RefreshAccessToken renews access. Depending on RefreshMode the token is
	// a refresh token or the current access token.
	RefreshAccessToken(ctx context.Context, token string) (*OAuthTokens, error)

	// GetTokenExpiry returns the absolute expiry for tokens or nil.
	GetTokenExpiry(tokens *OAuthTokens) *time.Time
}

// AuthParamsCustomizer is implemented by adapters that need non standard
// authorization parameters. It runs after the standard set is built.
type AuthParamsCustomizer interface {
	CustomizeAuthParams(params url.Values)
}

// TokenRevoker is implemented by adapters whose platform exposes a
// revocation endpoint.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, token string) error
}

// TokenExpiry converts a relative lifetime to an absolute instant.
func TokenExpiry(tokens *OAuthTokens, now time.Time) *time.Time {
	if tokens == nil || tokens.ExpiresIn <= 0 {
		return nil
	}
	expiry := now.Add(time.Duration(tokens.ExpiresIn) * time.Second)
	return &expiry
}

// CallbackURL is the redirect uri registered for platform.
func CallbackURL(baseURL string, platform Platform) string {
	return strings.TrimRight(baseURL, "/") + "/api/oauth/" + platform.Slug() + "/callback"
}

// AuthorizationURL builds the consent URL for adapter.
func AuthorizationURL(adapter PlatformAdapter, redirectURI, state, challenge string) string {
	params := url.Values{}
	params.Set("client_id", adapter.Credentials().ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(adapter.Scopes(), " "))
	params.Set("state", state)
	params.Set("code_challenge", challenge)
	params.Set("code_challenge_method", CodeChallengeMethod)

	if customizer, ok := adapter.(AuthParamsCustomizer); ok {
		customizer.CustomizeAuthParams(params)
	}

	base := adapter.Endpoints().AuthorizationURL
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}
