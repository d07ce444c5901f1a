package oauth

import (
	"context"
	"time"
)

// AccountStore persists social accounts. UpsertAccount is keyed on
// (UserID, Platform) and must never create a duplicate row.
type AccountStore interface {
	UpsertAccount(ctx context.Context, account *SocialAccount) (*SocialAccount, error)
	FindAccount(ctx context.Context, userID string, platform Platform) (*SocialAccount, error)
	FindAccountsByUser(ctx context.Context, userID string) ([]*SocialAccount, error)
	FindAccountsExpiringBefore(ctx context.Context, before time.Time) ([]*SocialAccount, error)
	UpdateAccountStatus(ctx context.Context, id string, status AccountStatus, checkedAt time.Time) error
}

// StateStore persists one-time authorization states.
type StateStore interface {
	CreateState(ctx context.Context, state *OAuthState) error
	// ConsumeState atomically removes and returns the unexpired record for
	// value issued to platform. Unknown, expired, already consumed or
	// mismatched values yield ErrInvalidState and leave the record in place.
	ConsumeState(ctx context.Context, platform Platform, value string, now time.Time) (*OAuthState, error)
	DeleteExpiredStates(ctx context.Context, now time.Time) (int64, error)
}

// NewInvalidState returns a fresh ErrInvalidState for store implementations.
func NewInvalidState() error {
	return wrapError(ErrInvalidState, "", "consume_state", nil)
}

// NewAccountNotFound returns a fresh ErrAccountNotFound.
func NewAccountNotFound(userID string, platform Platform) error {
	clone := ErrAccountNotFound.Clone()
	if clone == nil {
		return ErrAccountNotFound
	}
	return clone.WithMetadata(map[string]any{
		"user_id":  userID,
		"platform": string(platform),
	})
}

// NewStorageError wraps a persistence failure.
func NewStorageError(operation string, err error) error {
	return wrapError(ErrStorage, "", operation, err)
}
