package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/uptrace/bun"
)

// Manager groups the stores sharing one database handle.
type Manager struct {
	db       *bun.DB
	accounts *SocialAccountRepository
	states   *OAuthStateRepository
}

// NewRepositoryManager builds the account and state stores over db.
func NewRepositoryManager(db *bun.DB) *Manager {
	return &Manager{
		db:       db,
		accounts: NewSocialAccountRepository(db),
		states:   NewOAuthStateRepository(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}
	if m.states == nil {
		return errors.New("repository states should be initialized")
	}
	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f with stores bound to a transaction.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, accounts oauth.AccountStore, states oauth.StateStore) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
			return f(ctx, NewSocialAccountRepository(tx), NewOAuthStateRepository(tx))
		})
	}
}

// Migrate applies the embedded schema.
func (m *Manager) Migrate(ctx context.Context) error {
	return Migrate(ctx, m.db)
}

func (m *Manager) DB() *bun.DB {
	return m.db
}

func (m *Manager) Accounts() oauth.AccountStore {
	return m.accounts
}

func (m *Manager) States() oauth.StateStore {
	return m.states
}

func (m *Manager) Close() error {
	return m.db.Close()
}
