package oauth

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Manager routes requests to the orchestrator of each configured platform
// and runs the batch maintenance jobs.
type Manager struct {
	orchestrators map[Platform]*Orchestrator
	accounts      AccountStore
	states        StateStore
	logger        Logger
	metrics       *Metrics
	now           func() time.Time
}

// NewManager builds one orchestrator per adapter. Options apply to every
// orchestrator and to the manager itself.
func NewManager(accounts AccountStore, states StateStore, cipher *TokenCipher, cfg Config, adapters []PlatformAdapter, opts ...OrchestratorOption) *Manager {
	shared := applyOrchestratorOptions(cfg, opts)
	m := &Manager{
		orchestrators: make(map[Platform]*Orchestrator, len(adapters)),
		accounts:      accounts,
		states:        states,
		logger:        shared.logger,
		metrics:       shared.metrics,
		now:           shared.now,
	}

	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		m.orchestrators[adapter.Platform()] = NewOrchestrator(adapter, accounts, states, cipher, cfg, opts...)
	}
	return m
}

// Orchestrator returns the orchestrator for platform.
func (m *Manager) Orchestrator(platform Platform) (*Orchestrator, error) {
	o, ok := m.orchestrators[platform]
	if !ok {
		return nil, platformNotSupported(string(platform))
	}
	return o, nil
}

// Platforms lists the platforms with a registered adapter.
func (m *Manager) Platforms() []Platform {
	out := make([]Platform, 0, len(m.orchestrators))
	for _, p := range AllPlatforms() {
		if _, ok := m.orchestrators[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Accounts lists every account of userID.
func (m *Manager) Accounts(ctx context.Context, userID string) ([]*SocialAccount, error) {
	accounts, err := m.accounts.FindAccountsByUser(ctx, userID)
	if err != nil {
		return nil, NewStorageError("find_accounts", err)
	}
	return accounts, nil
}

// RefreshResult reports the outcome for one account of a batch refresh.
type RefreshResult struct {
	AccountID string
	UserID    string
	Platform  Platform
	Err       error
}

// RefreshReport summarizes a RefreshExpiring run.
type RefreshReport struct {
	Attempted int
	Refreshed int
	Skipped   int
	Results   []RefreshResult
}

// Failed returns the results that carry an error.
func (r RefreshReport) Failed() []RefreshResult {
	var out []RefreshResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// RefreshExpiring refreshes every connected account whose token expires
// within the given window, at most concurrency at a time. Individual
// failures are reported in the result and do not stop the batch.
func (m *Manager) RefreshExpiring(ctx context.Context, within time.Duration, concurrency int) (RefreshReport, error) {
	report := RefreshReport{}

	accounts, err := m.accounts.FindAccountsExpiringBefore(ctx, m.now().Add(within))
	if err != nil {
		return report, NewStorageError("find_expiring", err)
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, account := range accounts {
		if account == nil || !account.Connected {
			continue
		}
		o, ok := m.orchestrators[account.Platform]
		if !ok || o.adapter.RefreshMode() == RefreshUnsupported {
			report.Skipped++
			continue
		}

		report.Attempted++
		account := account
		g.Go(func() error {
			_, rerr := o.RefreshAccount(gctx, account.UserID)

			mu.Lock()
			defer mu.Unlock()
			report.Results = append(report.Results, RefreshResult{
				AccountID: account.ID,
				UserID:    account.UserID,
				Platform:  account.Platform,
				Err:       rerr,
			})
			if rerr == nil {
				report.Refreshed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].AccountID < report.Results[j].AccountID
	})

	m.logger.Info("refresh batch finished",
		"attempted", report.Attempted,
		"refreshed", report.Refreshed,
		"failed", report.Attempted-report.Refreshed,
		"skipped", report.Skipped,
	)
	return report, ctx.Err()
}

// SweepExpiredStates physically deletes states past their expiry.
func (m *Manager) SweepExpiredStates(ctx context.Context) (int64, error) {
	n, err := m.states.DeleteExpiredStates(ctx, m.now())
	if err != nil {
		return 0, NewStorageError("delete_expired_states", err)
	}
	m.metrics.statesSwept(n)
	if n > 0 {
		m.logger.Debug("expired oauth states swept", "count", n)
	}
	return n, nil
}
