package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/uptrace/bun"
)

// SocialAccountRepository implements oauth.AccountStore using Bun.
type SocialAccountRepository struct {
	db bun.IDB
}

var _ oauth.AccountStore = (*SocialAccountRepository)(nil)

// NewSocialAccountRepository creates a new repository.
func NewSocialAccountRepository(db bun.IDB) *SocialAccountRepository {
	return &SocialAccountRepository{db: db}
}

// UpsertAccount implements oauth.AccountStore. The row is keyed on
// (user_id, platform); an existing row keeps its id and created_at.
func (r *SocialAccountRepository) UpsertAccount(ctx context.Context, account *oauth.SocialAccount) (*oauth.SocialAccount, error) {
	if account == nil {
		return nil, errors.New("social account is nil")
	}

	model := *account
	model.TokenExpiry = utcPtr(model.TokenExpiry)
	model.LastChecked = utcPtr(model.LastChecked)
	model.CreatedAt = model.CreatedAt.UTC()
	model.UpdatedAt = model.UpdatedAt.UTC()

	_, err := r.db.NewInsert().
		Model(&model).
		On("CONFLICT (user_id, platform) DO UPDATE").
		Set("platform_user_id = EXCLUDED.platform_user_id").
		Set("username = EXCLUDED.username").
		Set("display_name = EXCLUDED.display_name").
		Set("avatar = EXCLUDED.avatar").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_expiry = EXCLUDED.token_expiry").
		Set("connected = EXCLUDED.connected").
		Set("status = EXCLUDED.status").
		Set("last_checked = EXCLUDED.last_checked").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("upsert social account: %w", err)
	}

	return r.FindAccount(ctx, account.UserID, account.Platform)
}

// FindAccount implements oauth.AccountStore.
func (r *SocialAccountRepository) FindAccount(ctx context.Context, userID string, platform oauth.Platform) (*oauth.SocialAccount, error) {
	account := new(oauth.SocialAccount)
	err := r.db.NewSelect().
		Model(account).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.platform = ?", platform).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauth.NewAccountNotFound(userID, platform)
		}
		return nil, err
	}
	return account, nil
}

// FindAccountsByUser implements oauth.AccountStore.
func (r *SocialAccountRepository) FindAccountsByUser(ctx context.Context, userID string) ([]*oauth.SocialAccount, error) {
	var accounts []*oauth.SocialAccount
	err := r.db.NewSelect().
		Model(&accounts).
		Where("?TableAlias.user_id = ?", userID).
		Order("platform ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if accounts == nil {
		accounts = []*oauth.SocialAccount{}
	}
	return accounts, nil
}

// FindAccountsExpiringBefore implements oauth.AccountStore. Accounts
// without an expiry are never returned.
func (r *SocialAccountRepository) FindAccountsExpiringBefore(ctx context.Context, before time.Time) ([]*oauth.SocialAccount, error) {
	var accounts []*oauth.SocialAccount
	err := r.db.NewSelect().
		Model(&accounts).
		Where("?TableAlias.connected = ?", true).
		Where("?TableAlias.token_expiry IS NOT NULL").
		Where("?TableAlias.token_expiry < ?", before.UTC()).
		Order("token_expiry ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return accounts, nil
}

// UpdateAccountStatus implements oauth.AccountStore.
func (r *SocialAccountRepository) UpdateAccountStatus(ctx context.Context, id string, status oauth.AccountStatus, checkedAt time.Time) error {
	checkedAt = checkedAt.UTC()
	res, err := r.db.NewUpdate().
		Model((*oauth.SocialAccount)(nil)).
		Set("status = ?", status).
		Set("last_checked = ?", checkedAt).
		Set("updated_at = ?", checkedAt).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update social account status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("social account %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
