package oauth_test

import (
	"context"
	"sort"
	"sync"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/stretchr/testify/mock"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*oauth.SocialAccount
	upserts  int
	err      error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[string]*oauth.SocialAccount{}}
}

func accountKey(userID string, platform oauth.Platform) string {
	return userID + "|" + string(platform)
}

func (s *memAccounts) UpsertAccount(_ context.Context, account *oauth.SocialAccount) (*oauth.SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	s.upserts++
	record := *account
	key := accountKey(account.UserID, account.Platform)
	if existing, ok := s.accounts[key]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}
	s.accounts[key] = &record

	out := record
	return &out, nil
}

func (s *memAccounts) FindAccount(_ context.Context, userID string, platform oauth.Platform) (*oauth.SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.accounts[accountKey(userID, platform)]
	if !ok {
		return nil, oauth.NewAccountNotFound(userID, platform)
	}
	out := *record
	return &out, nil
}

func (s *memAccounts) FindAccountsByUser(_ context.Context, userID string) ([]*oauth.SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*oauth.SocialAccount{}
	for _, record := range s.accounts {
		if record.UserID == userID {
			cp := *record
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *memAccounts) FindAccountsExpiringBefore(_ context.Context, before time.Time) ([]*oauth.SocialAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*oauth.SocialAccount
	for _, record := range s.accounts {
		if record.Connected && record.TokenExpiry != nil && record.TokenExpiry.Before(before) {
			cp := *record
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memAccounts) UpdateAccountStatus(_ context.Context, id string, status oauth.AccountStatus, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.accounts {
		if record.ID == id {
			record.Status = status
			record.LastChecked = &checkedAt
			return nil
		}
	}
	return oauth.NewAccountNotFound(id, "")
}

func (s *memAccounts) get(userID string, platform oauth.Platform) *oauth.SocialAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.accounts[accountKey(userID, platform)]; ok {
		cp := *record
		return &cp
	}
	return nil
}

func (s *memAccounts) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

type memStates struct {
	mu     sync.Mutex
	states map[string]*oauth.OAuthState
}

func newMemStates() *memStates {
	return &memStates{states: map[string]*oauth.OAuthState{}}
}

func (s *memStates) CreateState(_ context.Context, state *oauth.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	s.states[state.State] = &cp
	return nil
}

func (s *memStates) ConsumeState(_ context.Context, platform oauth.Platform, value string, now time.Time) (*oauth.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.states[value]
	if !ok || record.Platform != platform || record.Expired(now) {
		return nil, oauth.NewInvalidState()
	}
	delete(s.states, value)
	return record, nil
}

func (s *memStates) DeleteExpiredStates(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, record := range s.states {
		if record.Expired(now) {
			delete(s.states, key)
			n++
		}
	}
	return n, nil
}

func (s *memStates) only() *oauth.OAuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.states {
		return record
	}
	return nil
}

func (s *memStates) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// stubAdapter is a scriptable PlatformAdapter.
type stubAdapter struct {
	platform oauth.Platform
	creds    oauth.ProviderCredentials
	mode     oauth.RefreshMode

	exchange func(code, verifier string) (*oauth.OAuthTokens, error)
	refresh  func(token string) (*oauth.OAuthTokens, error)
	profile  func(accessToken string) (*oauth.UserProfile, error)

	mu              sync.Mutex
	exchangeCalls   int
	refreshedWith   []string
	lastVerifier    string
	lastAccessToken string
}

func newStubAdapter(platform oauth.Platform) *stubAdapter {
	return &stubAdapter{
		platform: platform,
		creds:    oauth.ProviderCredentials{ClientID: "client-id", ClientSecret: "client-secret"},
		mode:     oauth.RefreshWithRefreshToken,
		exchange: func(code, verifier string) (*oauth.OAuthTokens, error) {
			return &oauth.OAuthTokens{AccessToken: "tok", RefreshToken: "r", ExpiresIn: 7200, TokenType: "bearer"}, nil
		},
		refresh: func(token string) (*oauth.OAuthTokens, error) {
			return &oauth.OAuthTokens{AccessToken: "tok2", ExpiresIn: 7200, TokenType: "bearer"}, nil
		},
		profile: func(accessToken string) (*oauth.UserProfile, error) {
			return &oauth.UserProfile{ID: "42", Username: "baker", DisplayName: "Baker"}, nil
		},
	}
}

func (a *stubAdapter) Platform() oauth.Platform { return a.platform }

func (a *stubAdapter) Endpoints() oauth.Endpoints {
	return oauth.Endpoints{
		AuthorizationURL: "https://provider.example/authorize",
		TokenURL:         "https://provider.example/token",
		ProfileURL:       "https://provider.example/me",
	}
}

func (a *stubAdapter) Scopes() []string { return []string{"read", "write"} }

func (a *stubAdapter) Credentials() oauth.ProviderCredentials { return a.creds }

func (a *stubAdapter) RefreshMode() oauth.RefreshMode { return a.mode }

func (a *stubAdapter) ExchangeCodeForTokens(_ context.Context, code, verifier string) (*oauth.OAuthTokens, error) {
	a.mu.Lock()
	a.exchangeCalls++
	a.lastVerifier = verifier
	a.mu.Unlock()
	return a.exchange(code, verifier)
}

func (a *stubAdapter) GetUserProfile(_ context.Context, accessToken string) (*oauth.UserProfile, error) {
	a.mu.Lock()
	a.lastAccessToken = accessToken
	a.mu.Unlock()
	return a.profile(accessToken)
}

func (a *stubAdapter) RefreshAccessToken(_ context.Context, token string) (*oauth.OAuthTokens, error) {
	a.mu.Lock()
	a.refreshedWith = append(a.refreshedWith, token)
	a.mu.Unlock()
	return a.refresh(token)
}

func (a *stubAdapter) GetTokenExpiry(tokens *oauth.OAuthTokens) *time.Time {
	return oauth.TokenExpiry(tokens, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

// revokingAdapter adds TokenRevoker to stubAdapter.
type revokingAdapter struct {
	*stubAdapter
	revoked   []string
	revokeErr error
}

func (a *revokingAdapter) RevokeToken(_ context.Context, token string) error {
	a.revoked = append(a.revoked, token)
	return a.revokeErr
}

// MockAccountStore is a testify mock of oauth.AccountStore.
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) UpsertAccount(ctx context.Context, account *oauth.SocialAccount) (*oauth.SocialAccount, error) {
	args := m.Called(ctx, account)
	if v := args.Get(0); v != nil {
		return v.(*oauth.SocialAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountStore) FindAccount(ctx context.Context, userID string, platform oauth.Platform) (*oauth.SocialAccount, error) {
	args := m.Called(ctx, userID, platform)
	if v := args.Get(0); v != nil {
		return v.(*oauth.SocialAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountStore) FindAccountsByUser(ctx context.Context, userID string) ([]*oauth.SocialAccount, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*oauth.SocialAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountStore) FindAccountsExpiringBefore(ctx context.Context, before time.Time) ([]*oauth.SocialAccount, error) {
	args := m.Called(ctx, before)
	if v := args.Get(0); v != nil {
		return v.([]*oauth.SocialAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountStore) UpdateAccountStatus(ctx context.Context, id string, status oauth.AccountStatus, checkedAt time.Time) error {
	args := m.Called(ctx, id, status, checkedAt)
	return args.Error(0)
}

type recordingSink struct {
	mu     sync.Mutex
	events []oauth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event oauth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []oauth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]oauth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}
