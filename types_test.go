package oauth_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	cases := map[string]oauth.Platform{
		"twitter":   oauth.PlatformTwitter,
		"X":         oauth.PlatformTwitter,
		"LINKEDIN":  oauth.PlatformLinkedIn,
		" youtube ": oauth.PlatformYouTube,
		"tiktok":    oauth.PlatformTikTok,
	}
	for in, want := range cases {
		got, err := oauth.ParsePlatform(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := oauth.ParsePlatform("myspace")
	assert.True(t, oauth.IsKind(err, oauth.KindPlatformUnsupported))
}

func TestOAuthTokensStringHidesValues(t *testing.T) {
	tokens := oauth.OAuthTokens{AccessToken: "super-secret", RefreshToken: "also-secret", TokenType: "bearer", ExpiresIn: 60}

	out := fmt.Sprintf("%v %s", tokens, tokens)
	assert.NotContains(t, out, "super-secret")
	assert.NotContains(t, out, "also-secret")
	assert.Contains(t, out, "refresh=true")
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, oauth.TokenExpiry(nil, now))
	assert.Nil(t, oauth.TokenExpiry(&oauth.OAuthTokens{}, now))

	expiry := oauth.TokenExpiry(&oauth.OAuthTokens{ExpiresIn: 3600}, now)
	require.NotNil(t, expiry)
	assert.Equal(t, now.Add(time.Hour), *expiry)
}

func TestSocialAccountIsExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.False(t, (&oauth.SocialAccount{}).IsExpired(now))
	assert.True(t, (&oauth.SocialAccount{TokenExpiry: &past}).IsExpired(now))
	assert.False(t, (&oauth.SocialAccount{TokenExpiry: &future}).IsExpired(now))
}

type customizingAdapter struct {
	*stubAdapter
}

func (customizingAdapter) CustomizeAuthParams(params url.Values) {
	params.Set("scope", "read,write")
	params.Set("access_type", "offline")
}

func TestAuthorizationURLAppliesCustomizer(t *testing.T) {
	adapter := customizingAdapter{newStubAdapter(oauth.PlatformPinterest)}

	raw := oauth.AuthorizationURL(adapter, "https://app.example/cb", "st", "ch")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "read,write", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "ch", q.Get("code_challenge"))
}

func TestCallbackURL(t *testing.T) {
	assert.Equal(t, "https://app.example/api/oauth/linkedin/callback", oauth.CallbackURL("https://app.example/", oauth.PlatformLinkedIn))
}

func TestLoggerActivitySink(t *testing.T) {
	var lines []string
	logger := &captureLogger{lines: &lines}

	err := oauth.LoggerActivitySink(logger).Record(context.Background(), oauth.ActivityEvent{
		EventType:  oauth.ActivityEventAccountStatusChanged,
		UserID:     "u1",
		Platform:   oauth.PlatformTwitter,
		FromStatus: oauth.AccountStatusActive,
		ToStatus:   oauth.AccountStatusError,
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "oauth.account.status.changed")
	assert.Contains(t, lines[0], "ERROR")
}

type captureLogger struct {
	lines *[]string
}

func (l *captureLogger) record(msg string, args ...any) {
	*l.lines = append(*l.lines, fmt.Sprint(append([]any{msg}, args...)...))
}

func (l *captureLogger) Debug(msg string, args ...any) { l.record(msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record(msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record(msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record(msg, args...) }
