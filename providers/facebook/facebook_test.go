package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(serverURL string) *Adapter {
	return New(Config{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		RedirectURL:  "https://app.example/api/oauth/facebook/callback",
		TokenURL:     serverURL + "/oauth/access_token",
		ProfileURL:   serverURL + "/me/accounts",
	})
}

func TestExchangeCodeSwapsForLongLivedToken(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "app-id", q.Get("client_id"))
		assert.Equal(t, "app-secret", q.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("grant_type") == "fb_exchange_token" {
			calls = append(calls, "long")
			assert.Equal(t, "short-token", q.Get("fb_exchange_token"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "long-token",
				"token_type":   "bearer",
				"expires_in":   5183944,
			})
			return
		}

		calls = append(calls, "short")
		assert.Equal(t, "auth-code", q.Get("code"))
		assert.Equal(t, "verifier", q.Get("code_verifier"))
		assert.Equal(t, "https://app.example/api/oauth/facebook/callback", q.Get("redirect_uri"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "short-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	tokens, err := newTestAdapter(server.URL).ExchangeCodeForTokens(context.Background(), "auth-code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, []string{"short", "long"}, calls)
	assert.Equal(t, "long-token", tokens.AccessToken)
	assert.EqualValues(t, 5183944, tokens.ExpiresIn)
}

func TestRefreshReexchangesCurrentToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "current-long", q.Get("fb_exchange_token"))
		assert.Empty(t, q.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "next-long"})
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	assert.Equal(t, oauth.RefreshWithAccessToken, adapter.RefreshMode())

	tokens, err := adapter.RefreshAccessToken(context.Background(), "current-long")
	require.NoError(t, err)
	assert.Equal(t, "next-long", tokens.AccessToken)

	expiry := adapter.GetTokenExpiry(tokens)
	require.NotNil(t, expiry)
	assert.WithinDuration(t, time.Now().Add(LongLivedTokenLifetime), *expiry, time.Minute)
}

func TestGetUserProfilePicksFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		assert.Equal(t, "Bearer long-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id":   "page-1",
					"name": "Bakery",
					"picture": map[string]any{
						"data": map[string]any{"url": "https://cdn.example/bakery.png"},
					},
				},
				{"id": "page-2", "name": "Second"},
			},
		})
	}))
	defer server.Close()

	profile, err := newTestAdapter(server.URL).GetUserProfile(context.Background(), "long-token")
	require.NoError(t, err)
	assert.Equal(t, "page-1", profile.ID)
	assert.Equal(t, "Bakery", profile.Username)
	assert.Equal(t, "Bakery", profile.DisplayName)
	assert.Equal(t, "https://cdn.example/bakery.png", profile.Avatar)
}

func TestGetUserProfileWithoutPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	_, err := newTestAdapter(server.URL).GetUserProfile(context.Background(), "long-token")
	require.Error(t, err)
	assert.Equal(t, oauth.KindProfileUnavailable, oauth.KindOf(err))
	assert.Contains(t, err.Error(), "No Facebook Pages found")
}

func TestGraphErrorNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "Error validating verification code.",
				"type":    "OAuthException",
				"code":    100,
			},
		})
	}))
	defer server.Close()

	_, err := newTestAdapter(server.URL).ExchangeCodeForTokens(context.Background(), "bad", "verifier")
	require.Error(t, err)

	perr, ok := err.(*oauth.ProviderError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "OAuthException", perr.Code)
	assert.Equal(t, "Error validating verification code.", perr.Description)
}

func TestRefreshTransportErrorHidesCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	adapter := newTestAdapter(server.URL)
	server.Close()

	_, err := adapter.RefreshAccessToken(context.Background(), "PLAIN-LONG-LIVED-TOKEN")
	require.Error(t, err)

	perr, ok := err.(*oauth.ProviderError)
	require.True(t, ok)
	assert.Equal(t, "refresh", perr.Operation)
	assert.NotContains(t, err.Error(), "PLAIN-LONG-LIVED-TOKEN")
	assert.NotContains(t, err.Error(), "app-secret")
}

func TestExchangeTransportErrorHidesCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	adapter := newTestAdapter(server.URL)
	server.Close()

	_, err := adapter.ExchangeCodeForTokens(context.Background(), "AUTH-CODE-123", "verifier")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "AUTH-CODE-123")
	assert.NotContains(t, err.Error(), "app-secret")
}
