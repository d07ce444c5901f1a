package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(serverURL string) *Adapter {
	return New(Config{
		ClientID:     "ig-app",
		ClientSecret: "ig-secret",
		RedirectURL:  "https://app.example/api/oauth/instagram/callback",
		TokenURL:     serverURL + "/oauth/access_token",
		ExchangeURL:  serverURL + "/access_token",
		RefreshURL:   serverURL + "/refresh_access_token",
		ProfileURL:   serverURL + "/me",
	})
}

func TestCustomizeAuthParamsUsesCommaScopes(t *testing.T) {
	adapter := New(Config{ClientID: "ig-app"})
	params := url.Values{"scope": {"a b"}}

	adapter.CustomizeAuthParams(params)
	assert.Equal(t, "instagram_business_basic,instagram_business_content_publish", params.Get("scope"))
}

func TestExchangeCodeUpgradesToLongLivedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth/access_token":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "ig-app", r.PostForm.Get("client_id"))
			assert.Equal(t, "ig-secret", r.PostForm.Get("client_secret"))
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "auth-code", r.PostForm.Get("code"))
			assert.Equal(t, "verifier", r.PostForm.Get("code_verifier"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "short",
				"user_id":      17841400000000000,
			})
		case "/access_token":
			assert.Equal(t, http.MethodGet, r.Method)
			q := r.URL.Query()
			assert.Equal(t, "ig_exchange_token", q.Get("grant_type"))
			assert.Equal(t, "ig-secret", q.Get("client_secret"))
			assert.Equal(t, "short", q.Get("access_token"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "long",
				"token_type":   "bearer",
				"expires_in":   5183944,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tokens, err := newTestAdapter(server.URL).ExchangeCodeForTokens(context.Background(), "auth-code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "long", tokens.AccessToken)
	assert.EqualValues(t, 5183944, tokens.ExpiresIn)
}

func TestRefreshUsesIgRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh_access_token", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "ig_refresh_token", q.Get("grant_type"))
		assert.Equal(t, "long", q.Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "long-2",
			"token_type":   "bearer",
			"expires_in":   5183944,
		})
	}))
	defer server.Close()

	tokens, err := newTestAdapter(server.URL).RefreshAccessToken(context.Background(), "long")
	require.NoError(t, err)
	assert.Equal(t, "long-2", tokens.AccessToken)
}

func TestGetUserProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "Bearer long", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                  "9001",
			"user_id":             "17841400000000000",
			"username":            "bakery",
			"name":                "The Bakery",
			"profile_picture_url": "https://cdn.example/ig.jpg",
		})
	}))
	defer server.Close()

	profile, err := newTestAdapter(server.URL).GetUserProfile(context.Background(), "long")
	require.NoError(t, err)
	assert.Equal(t, "17841400000000000", profile.ID)
	assert.Equal(t, "bakery", profile.Username)
	assert.Equal(t, "The Bakery", profile.DisplayName)
	assert.Equal(t, "https://cdn.example/ig.jpg", profile.Avatar)
}

func TestExchangeErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_type":    "OAuthException",
			"code":          400,
			"error_message": "Invalid authorization code",
		})
	}))
	defer server.Close()

	_, err := newTestAdapter(server.URL).ExchangeCodeForTokens(context.Background(), "bad", "verifier")
	require.Error(t, err)

	perr, ok := err.(*oauth.ProviderError)
	require.True(t, ok)
	assert.Equal(t, oauth.PlatformInstagram, perr.Platform)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "OAuthException", perr.Code)
	assert.Equal(t, "Invalid authorization code", perr.Description)
}

func TestRefreshTransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	adapter := newTestAdapter(server.URL)
	server.Close()

	_, err := adapter.RefreshAccessToken(context.Background(), "PLAIN-IG-TOKEN")
	require.Error(t, err)

	perr, ok := err.(*oauth.ProviderError)
	require.True(t, ok)
	assert.Equal(t, "refresh", perr.Operation)
	assert.NotContains(t, err.Error(), "PLAIN-IG-TOKEN")
	assert.NotContains(t, err.Error(), "ig-secret")
}
