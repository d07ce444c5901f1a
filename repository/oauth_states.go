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

// OAuthStateRepository implements oauth.StateStore using Bun.
type OAuthStateRepository struct {
	db bun.IDB
}

var _ oauth.StateStore = (*OAuthStateRepository)(nil)

// NewOAuthStateRepository creates a new repository.
func NewOAuthStateRepository(db bun.IDB) *OAuthStateRepository {
	return &OAuthStateRepository{db: db}
}

// CreateState implements oauth.StateStore.
func (r *OAuthStateRepository) CreateState(ctx context.Context, state *oauth.OAuthState) error {
	if state == nil {
		return errors.New("oauth state is nil")
	}
	record := *state
	record.ExpiresAt = record.ExpiresAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()

	if _, err := r.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return fmt.Errorf("insert oauth state: %w", err)
	}
	return nil
}

// ConsumeState implements oauth.StateStore. The delete is conditional on
// the id found, so of two concurrent consumers only one affects a row.
func (r *OAuthStateRepository) ConsumeState(ctx context.Context, platform oauth.Platform, value string, now time.Time) (*oauth.OAuthState, error) {
	record := new(oauth.OAuthState)
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.state = ?", value).
		Where("?TableAlias.platform = ?", platform).
		Where("?TableAlias.expires_at > ?", now.UTC()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauth.NewInvalidState()
		}
		return nil, err
	}

	res, err := r.db.NewDelete().
		Model((*oauth.OAuthState)(nil)).
		Where("id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete oauth state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, oauth.NewInvalidState()
	}
	return record, nil
}

// DeleteExpiredStates implements oauth.StateStore.
func (r *OAuthStateRepository) DeleteExpiredStates(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*oauth.OAuthState)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired oauth states: %w", err)
	}
	return res.RowsAffected()
}
