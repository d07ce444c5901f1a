package linkedin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeCodeSendsCredentialsInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, hasBasic := r.BasicAuth()
		assert.False(t, hasBasic)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "auth-code", r.PostForm.Get("code"))
		assert.Equal(t, "verifier", r.PostForm.Get("code_verifier"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "li-token",
			"expires_in":   5184000,
			"scope":        "openid,profile,email,w_member_social",
		})
	}))
	defer server.Close()

	adapter := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example/api/oauth/linkedin/callback",
		TokenURL:     server.URL + "/oauth/v2/accessToken",
	})

	tokens, err := adapter.ExchangeCodeForTokens(context.Background(), "auth-code", "verifier")
	require.NoError(t, err)
	assert.Equal(t, "li-token", tokens.AccessToken)
	assert.Empty(t, tokens.RefreshToken)
	assert.EqualValues(t, 5184000, tokens.ExpiresIn)
}

func TestGetUserProfileFromUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer li-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":     "abc123",
			"name":    "Ada Lovelace",
			"picture": "https://media.licdn.example/ada.jpg",
			"email":   "ada@example.com",
		})
	}))
	defer server.Close()

	adapter := New(Config{ProfileURL: server.URL + "/v2/userinfo"})

	profile, err := adapter.GetUserProfile(context.Background(), "li-token")
	require.NoError(t, err)
	assert.Equal(t, "abc123", profile.ID)
	assert.Equal(t, "ada@example.com", profile.Username)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName)
	assert.Equal(t, "https://media.licdn.example/ada.jpg", profile.Avatar)
}

func TestGetUserProfileWithoutEmailFallsBackToSub(t *testing.T) {
	profile, err := mapProfile(&userInfo{Sub: "abc123", GivenName: "Ada", FamilyName: "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", profile.Username)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName)
}

func TestRefreshIsUnsupported(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	adapter := New(Config{TokenURL: server.URL})
	assert.Equal(t, oauth.RefreshUnsupported, adapter.RefreshMode())

	_, err := adapter.RefreshAccessToken(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, oauth.KindRefreshUnsupported, oauth.KindOf(err))
	assert.Contains(t, err.Error(), "LinkedIn does not support token refresh, user must re-authenticate")
	assert.False(t, called)
}
