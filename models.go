package oauth

import (
	"time"

	"github.com/uptrace/bun"
)

// SocialAccount is a user's connection to one platform. AccessToken and
// RefreshToken always hold TokenCipher output, never plaintext.
type SocialAccount struct {
	bun.BaseModel  `bun:"table:social_accounts,alias:sa"`
	ID             string        `bun:"id,pk" json:"id"`
	UserID         string        `bun:"user_id,notnull,unique:social_accounts_user_platform" json:"user_id"`
	Platform       Platform      `bun:"platform,notnull,unique:social_accounts_user_platform" json:"platform"`
	PlatformUserID string        `bun:"platform_user_id,notnull" json:"platform_user_id"`
	Username       string        `bun:"username" json:"username"`
	DisplayName    string        `bun:"display_name" json:"display_name"`
	Avatar         string        `bun:"avatar" json:"avatar,omitempty"`
	AccessToken    string        `bun:"access_token" json:"-"`
	RefreshToken   string        `bun:"refresh_token" json:"-"`
	TokenExpiry    *time.Time    `bun:"token_expiry,nullzero" json:"token_expiry,omitempty"`
	Connected      bool          `bun:"connected,notnull" json:"connected"`
	Status         AccountStatus `bun:"status,notnull" json:"status"`
	LastChecked    *time.Time    `bun:"last_checked,nullzero" json:"last_checked,omitempty"`
	CreatedAt      time.Time     `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull" json:"updated_at"`
}

// IsExpired reports whether the stored expiry is in the past. A nil expiry
// never expires.
func (a *SocialAccount) IsExpired(now time.Time) bool {
	if a == nil || a.TokenExpiry == nil {
		return false
	}
	return !a.TokenExpiry.After(now)
}

// OAuthState is the ephemeral record binding an authorization request to
// its callback. It is consumed exactly once.
type OAuthState struct {
	bun.BaseModel `bun:"table:oauth_states,alias:os"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Platform      Platform  `bun:"platform,notnull" json:"platform"`
	State         string    `bun:"state,notnull,unique" json:"state"`
	CodeVerifier  string    `bun:"code_verifier,notnull" json:"code_verifier"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Expired reports whether the state can no longer be consumed.
func (s *OAuthState) Expired(now time.Time) bool {
	return s == nil || !s.ExpiresAt.After(now)
}
