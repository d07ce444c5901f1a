package oauth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := oauth.DefaultConfig()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"APP_BASE_URL":            "https://app.example",
		"ENCRYPTION_KEY":          testKey,
		"TWITTER_CLIENT_ID":       "tw-id",
		"TWITTER_CLIENT_SECRET":   "tw-secret",
		"LINKEDIN_CLIENT_ID":      "li-id",
		"OAUTH_STATE_TTL":         "300",
		"OAUTH_HTTP_TIMEOUT":      "5s",
		"PINTEREST_CLIENT_SECRET": "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://app.example", cfg.AppBaseURL)
	assert.Equal(t, testKey, cfg.EncryptionKey)
	assert.Equal(t, 5*time.Minute, cfg.StateTTL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.Credentials(oauth.PlatformTwitter).Configured())
	assert.Equal(t, "li-id", cfg.Credentials(oauth.PlatformLinkedIn).ClientID)
	assert.False(t, cfg.Credentials(oauth.PlatformLinkedIn).Configured())
	_, hasPinterest := cfg.Providers[oauth.PlatformPinterest]
	assert.False(t, hasPinterest)
}

func TestApplyEnvRejectsBadDuration(t *testing.T) {
	cfg := oauth.DefaultConfig()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{"OAUTH_STATE_TTL": "soon"}))
	require.Error(t, err)
	assert.True(t, oauth.IsKind(err, oauth.KindConfiguration))
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_base_url: https://app.example/
encryption_key: `+testKey+`
state_ttl: 15m
providers:
  YOUTUBE:
    client_id: yt-id
    client_secret: yt-secret
`), 0o600))

	cfg, err := oauth.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://app.example", cfg.AppBaseURL)
	assert.Equal(t, 15*time.Minute, cfg.StateTTL)
	assert.Equal(t, oauth.DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, "yt-id", cfg.Credentials(oauth.PlatformYouTube).ClientID)
	assert.Equal(t, "https://app.example/api/oauth/youtube/callback", cfg.CallbackURL(oauth.PlatformYouTube))
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := oauth.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := oauth.DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_BASE_URL not configured")
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY not configured")

	cfg.AppBaseURL = "https://app.example"
	cfg.EncryptionKey = "abcd"
	assert.Error(t, cfg.Validate())

	cfg.EncryptionKey = testKey
	assert.NoError(t, cfg.Validate())

	cfg.StateTTL = time.Second
	assert.Error(t, cfg.Validate())
}

func TestRedacted(t *testing.T) {
	cfg := oauth.DefaultConfig()
	cfg.EncryptionKey = testKey
	cfg.DatabaseURL = "postgres://user:pass@db/socialflow"
	cfg.Providers[oauth.PlatformTwitter] = oauth.ProviderCredentials{ClientID: "tw-id", ClientSecret: "tw-secret"}

	out := cfg.Redacted()
	assert.NotContains(t, out.EncryptionKey, "0001")
	assert.NotContains(t, out.DatabaseURL, "pass")
	assert.Equal(t, "tw-id", out.Providers[oauth.PlatformTwitter].ClientID)
	assert.NotEqual(t, "tw-secret", out.Providers[oauth.PlatformTwitter].ClientSecret)

	// original untouched
	assert.Equal(t, "tw-secret", cfg.Providers[oauth.PlatformTwitter].ClientSecret)
}

func TestCredentialEnvNames(t *testing.T) {
	assert.Equal(t, "TIKTOK_CLIENT_ID", oauth.ClientIDEnv(oauth.PlatformTikTok))
	assert.Equal(t, "YOUTUBE_CLIENT_SECRET", oauth.ClientSecretEnv(oauth.PlatformYouTube))
}
