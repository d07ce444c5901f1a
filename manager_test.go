package oauth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerFixture struct {
	accounts *memAccounts
	states   *memStates
	cipher   *oauth.TokenCipher
	adapters map[oauth.Platform]*stubAdapter
	now      time.Time
	manager  *oauth.Manager
}

func newManagerFixture(t *testing.T, platforms ...oauth.Platform) *managerFixture {
	t.Helper()

	f := &managerFixture{
		accounts: newMemAccounts(),
		states:   newMemStates(),
		cipher:   newTestCipher(t),
		adapters: map[oauth.Platform]*stubAdapter{},
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	adapters := make([]oauth.PlatformAdapter, 0, len(platforms))
	for _, p := range platforms {
		stub := newStubAdapter(p)
		f.adapters[p] = stub
		adapters = append(adapters, stub)
	}

	f.manager = oauth.NewManager(f.accounts, f.states, f.cipher,
		oauth.Config{AppBaseURL: "https://app.example"},
		adapters,
		oauth.WithLogger(oauth.NopLogger()),
		oauth.WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *managerFixture) seed(t *testing.T, userID string, platform oauth.Platform, expiresIn time.Duration) {
	t.Helper()

	access, err := f.cipher.Encrypt("access-" + userID)
	require.NoError(t, err)
	refresh, err := f.cipher.Encrypt("refresh-" + userID)
	require.NoError(t, err)

	expiry := f.now.Add(expiresIn)
	_, err = f.accounts.UpsertAccount(context.Background(), &oauth.SocialAccount{
		ID:           userID + "-" + platform.Slug(),
		UserID:       userID,
		Platform:     platform,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenExpiry:  &expiry,
		Connected:    true,
		Status:       oauth.AccountStatusActive,
		CreatedAt:    f.now,
		UpdatedAt:    f.now,
	})
	require.NoError(t, err)
}

func TestManagerOrchestratorLookup(t *testing.T) {
	f := newManagerFixture(t, oauth.PlatformYouTube, oauth.PlatformTwitter)

	o, err := f.manager.Orchestrator(oauth.PlatformTwitter)
	require.NoError(t, err)
	assert.Equal(t, oauth.PlatformTwitter, o.Platform())

	_, err = f.manager.Orchestrator(oauth.PlatformTikTok)
	assert.True(t, oauth.IsKind(err, oauth.KindPlatformUnsupported))

	assert.Equal(t, []oauth.Platform{oauth.PlatformTwitter, oauth.PlatformYouTube}, f.manager.Platforms())
}

func TestManagerRefreshExpiring(t *testing.T) {
	f := newManagerFixture(t, oauth.PlatformTwitter, oauth.PlatformLinkedIn, oauth.PlatformPinterest)
	f.adapters[oauth.PlatformLinkedIn].mode = oauth.RefreshUnsupported
	f.adapters[oauth.PlatformPinterest].refresh = func(string) (*oauth.OAuthTokens, error) {
		return nil, &oauth.ProviderError{Platform: oauth.PlatformPinterest, Operation: "refresh", Status: http.StatusUnauthorized}
	}

	f.seed(t, "u1", oauth.PlatformTwitter, time.Hour)
	f.seed(t, "u2", oauth.PlatformTwitter, 2*time.Hour)
	f.seed(t, "u3", oauth.PlatformTwitter, 72*time.Hour)
	f.seed(t, "u1", oauth.PlatformLinkedIn, time.Hour)
	f.seed(t, "u1", oauth.PlatformPinterest, time.Hour)
	f.seed(t, "u1", oauth.PlatformTikTok, time.Hour)

	report, err := f.manager.RefreshExpiring(context.Background(), 24*time.Hour, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Refreshed)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, oauth.PlatformPinterest, report.Failed()[0].Platform)

	assert.ElementsMatch(t, []string{"refresh-u1", "refresh-u2"}, f.adapters[oauth.PlatformTwitter].refreshedWith)
	assert.Empty(t, f.adapters[oauth.PlatformLinkedIn].refreshedWith)
	assert.Equal(t, oauth.AccountStatusTokenExpired, f.accounts.get("u1", oauth.PlatformPinterest).Status)

	for i := 1; i < len(report.Results); i++ {
		assert.True(t, report.Results[i-1].AccountID < report.Results[i].AccountID)
	}
}

func TestManagerSweepExpiredStates(t *testing.T) {
	f := newManagerFixture(t, oauth.PlatformTwitter)
	ctx := context.Background()

	for i, offset := range []time.Duration{-time.Hour, -time.Minute, 5 * time.Minute} {
		require.NoError(t, f.states.CreateState(ctx, &oauth.OAuthState{
			ID:        string(rune('a' + i)),
			Platform:  oauth.PlatformTwitter,
			State:     string(rune('a' + i)),
			ExpiresAt: f.now.Add(offset),
		}))
	}

	n, err := f.manager.SweepExpiredStates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 1, f.states.len())
}

func TestManagerAccounts(t *testing.T) {
	f := newManagerFixture(t, oauth.PlatformTwitter)
	f.seed(t, "u1", oauth.PlatformTwitter, time.Hour)
	f.seed(t, "u1", oauth.PlatformYouTube, time.Hour)
	f.seed(t, "u2", oauth.PlatformYouTube, time.Hour)

	accounts, err := f.manager.Accounts(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestManagerWithoutAdaptersKeepsOptions(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.states.CreateState(ctx, &oauth.OAuthState{
		ID:        "s1",
		Platform:  oauth.PlatformTwitter,
		State:     "s1",
		ExpiresAt: f.now.Add(-time.Minute),
	}))

	assert.Empty(t, f.manager.Platforms())

	// the injected clock reaches the manager even with no orchestrators
	f.now = f.now.Add(-time.Hour)
	n, err := f.manager.SweepExpiredStates(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, f.states.len())
}
