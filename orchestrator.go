package oauth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Orchestrator drives the authorization code with PKCE flow for one
// platform adapter and owns every write to that platform's accounts.
type Orchestrator struct {
	adapter  PlatformAdapter
	accounts AccountStore
	states   StateStore
	cipher   *TokenCipher
	config   Config

	logger       Logger
	metrics      *Metrics
	activitySink ActivitySink
	stateMachine AccountStateMachine
	now          func() time.Time
	stateTTL     time.Duration
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the collectors updated by each operation.
func WithMetrics(m *Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithActivitySink sets where lifecycle events are published.
func WithActivitySink(sink ActivitySink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.activitySink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithStateTTL overrides how long an authorization state stays valid.
func WithStateTTL(ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.stateTTL = ttl
		}
	}
}

// NewOrchestrator wires an adapter to its stores. A nil cipher is accepted
// and reported as a configuration error when a token has to be sealed.
func NewOrchestrator(adapter PlatformAdapter, accounts AccountStore, states StateStore, cipher *TokenCipher, cfg Config, opts ...OrchestratorOption) *Orchestrator {
	o := applyOrchestratorOptions(cfg, opts)
	o.adapter = adapter
	o.accounts = accounts
	o.states = states
	o.cipher = cipher

	o.stateMachine = NewAccountStateMachine(accounts,
		WithStateMachineClock(o.now),
		WithStateMachineActivitySink(o.activitySink),
		WithStateMachineLogger(o.logger),
	)
	return o
}

// applyOrchestratorOptions resolves defaults and options without binding an
// adapter or stores.
func applyOrchestratorOptions(cfg Config, opts []OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		config:       cfg,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          nowUTC,
		stateTTL:     cfg.StateTTL,
	}
	if o.stateTTL <= 0 {
		o.stateTTL = DefaultStateTTL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Platform returns the platform served.
func (o *Orchestrator) Platform() Platform {
	return o.adapter.Platform()
}

// Adapter returns the underlying adapter.
func (o *Orchestrator) Adapter() PlatformAdapter {
	return o.adapter
}

// InitiateOAuth persists a fresh state and returns the consent URL the
// user has to be redirected to.
func (o *Orchestrator) InitiateOAuth(ctx context.Context, userID string) (string, error) {
	platform := o.Platform()

	if o.adapter.Credentials().ClientID == "" {
		return "", ConfigurationError(ClientIDEnv(platform))
	}
	if o.config.AppBaseURL == "" {
		return "", ConfigurationError(AppBaseURLEnv)
	}

	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return "", err
	}

	now := o.now()
	record := &OAuthState{
		ID:           uuid.NewString(),
		UserID:       userID,
		Platform:     platform,
		State:        state,
		CodeVerifier: verifier,
		ExpiresAt:    now.Add(o.stateTTL),
		CreatedAt:    now,
	}
	if err := o.states.CreateState(ctx, record); err != nil {
		return "", NewStorageError("create_state", err)
	}

	o.metrics.flowStarted(platform)
	o.logger.Debug("oauth flow initiated", "platform", platform, "user_id", userID)

	redirectURI := o.config.CallbackURL(platform)
	return AuthorizationURL(o.adapter, redirectURI, state, GenerateCodeChallenge(verifier)), nil
}

// HandleCallback completes the flow. The state is consumed before the
// provider is contacted, so a replayed callback fails even if the first
// one is still in flight. The account upsert is the only write.
func (o *Orchestrator) HandleCallback(ctx context.Context, code, state string) (account *SocialAccount, err error) {
	platform := o.Platform()
	defer func() {
		o.metrics.callback(platform, err)
		if err != nil {
			o.logger.Warn("oauth callback failed", "platform", platform, "kind", KindOf(err), "status", ProviderStatus(err))
			o.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventCallbackFailed,
				Platform:  platform,
				Metadata:  map[string]any{"kind": string(KindOf(err))},
			})
		}
	}()

	if err := o.checkCredentials(); err != nil {
		return nil, err
	}
	if o.cipher == nil {
		return nil, ConfigurationError(EncryptionKeyEnv)
	}
	if state == "" {
		return nil, NewInvalidState()
	}

	record, err := o.states.ConsumeState(ctx, platform, state, o.now())
	if err != nil {
		if IsKind(err, KindInvalidState) {
			return nil, err
		}
		return nil, NewStorageError("consume_state", err)
	}

	tokens, err := o.adapter.ExchangeCodeForTokens(ctx, code, record.CodeVerifier)
	if err != nil {
		return nil, wrapError(ErrTokenExchangeFailed, platform, "exchange", err)
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, wrapError(ErrTokenExchangeFailed, platform, "exchange", &ProviderError{
			Platform:    platform,
			Operation:   "exchange",
			Code:        "missing_access_token",
			Description: "missing access token",
		})
	}

	profile, err := o.adapter.GetUserProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, wrapError(ErrProfileFetchFailed, platform, "profile", err)
	}

	expiry := o.adapter.GetTokenExpiry(tokens)

	sealedAccess, sealedRefresh, err := o.seal(tokens)
	if err != nil {
		return nil, err
	}

	now := o.now()
	account = &SocialAccount{
		ID:             uuid.NewString(),
		UserID:         record.UserID,
		Platform:       platform,
		PlatformUserID: profile.ID,
		Username:       profile.Username,
		DisplayName:    profile.DisplayName,
		Avatar:         profile.Avatar,
		AccessToken:    sealedAccess,
		RefreshToken:   sealedRefresh,
		TokenExpiry:    expiry,
		Connected:      true,
		Status:         AccountStatusActive,
		LastChecked:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	saved, err := o.accounts.UpsertAccount(ctx, account)
	if err != nil {
		return nil, NewStorageError("upsert_account", err)
	}

	o.logger.Info("social account connected", "platform", platform, "user_id", saved.UserID, "account_id", saved.ID)
	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountConnected,
		UserID:    saved.UserID,
		AccountID: saved.ID,
		Platform:  platform,
		ToStatus:  AccountStatusActive,
		Metadata:  map[string]any{"platform_user_id": saved.PlatformUserID},
	})
	return saved, nil
}

// RefreshAccessToken passes token to the adapter without touching storage.
func (o *Orchestrator) RefreshAccessToken(ctx context.Context, token string) (*OAuthTokens, error) {
	return o.adapter.RefreshAccessToken(ctx, token)
}

// DecryptToken opens a stored token.
func (o *Orchestrator) DecryptToken(ciphertext string) (string, error) {
	if o.cipher == nil {
		return "", ConfigurationError(EncryptionKeyEnv)
	}
	return o.cipher.Decrypt(ciphertext)
}

// RefreshAccount renews the stored tokens of userID. On failure the account
// leaves ACTIVE: TOKEN_EXPIRED when the user has to re-authenticate, ERROR
// otherwise.
func (o *Orchestrator) RefreshAccount(ctx context.Context, userID string) (account *SocialAccount, err error) {
	platform := o.Platform()
	defer func() { o.metrics.refresh(platform, err) }()

	account, err = o.findAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.Connected {
		return nil, NewAccountNotFound(userID, platform)
	}
	if o.cipher == nil {
		return nil, ConfigurationError(EncryptionKeyEnv)
	}

	var tokens *OAuthTokens
	switch o.adapter.RefreshMode() {
	case RefreshUnsupported:
		err = RefreshNotSupported(platform)
	case RefreshWithAccessToken:
		tokens, err = o.refreshWith(ctx, account.AccessToken)
	default:
		tokens, err = o.refreshWith(ctx, account.RefreshToken)
	}
	if err != nil {
		o.markUnhealthy(ctx, account, err)
		return nil, err
	}

	sealedAccess, sealedRefresh, err := o.seal(tokens)
	if err != nil {
		o.markUnhealthy(ctx, account, err)
		return nil, err
	}

	from := account.Status
	now := o.now()
	account.AccessToken = sealedAccess
	// Providers that rotate refresh tokens return a new one; the others
	// keep the stored value valid.
	if sealedRefresh != "" {
		account.RefreshToken = sealedRefresh
	}
	account.TokenExpiry = o.adapter.GetTokenExpiry(tokens)
	account.Connected = true
	account.Status = AccountStatusActive
	account.LastChecked = &now
	account.UpdatedAt = now

	saved, err := o.accounts.UpsertAccount(ctx, account)
	if err != nil {
		return nil, NewStorageError("upsert_account", err)
	}

	if from != AccountStatusActive {
		o.metrics.statusChanged(platform, AccountStatusActive)
	}
	o.logger.Info("social account refreshed", "platform", platform, "user_id", userID)
	o.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccountRefreshed,
		UserID:     saved.UserID,
		AccountID:  saved.ID,
		Platform:   platform,
		FromStatus: from,
		ToStatus:   AccountStatusActive,
	})
	return saved, nil
}

// AccessToken returns the live plaintext access token of userID. A token
// that fails to decrypt moves the account to ERROR.
func (o *Orchestrator) AccessToken(ctx context.Context, userID string) (string, error) {
	account, err := o.findAccount(ctx, userID)
	if err != nil {
		return "", err
	}
	if !account.Connected || account.AccessToken == "" {
		return "", NewAccountNotFound(userID, o.Platform())
	}

	token, err := o.DecryptToken(account.AccessToken)
	if err != nil {
		if IsKind(err, KindDecryptionFailed) {
			o.transition(ctx, account, AccountStatusError, "token decryption failed")
		}
		return "", err
	}
	return token, nil
}

// Disconnect revokes the platform grant when supported, then clears the
// stored tokens. Revocation failures are logged and do not block.
func (o *Orchestrator) Disconnect(ctx context.Context, userID string) (*SocialAccount, error) {
	platform := o.Platform()

	account, err := o.findAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if revoker, ok := o.adapter.(TokenRevoker); ok && account.AccessToken != "" && o.cipher != nil {
		if token, derr := o.cipher.Decrypt(account.AccessToken); derr == nil {
			if rerr := revoker.RevokeToken(ctx, token); rerr != nil {
				o.logger.Warn("token revocation failed", "platform", platform, "user_id", userID, "status", ProviderStatus(rerr))
			}
		}
	}

	persist := func(ctx context.Context, acc *SocialAccount) error {
		acc.AccessToken = ""
		acc.RefreshToken = ""
		acc.TokenExpiry = nil
		acc.Connected = false
		acc.UpdatedAt = o.now()
		saved, err := o.accounts.UpsertAccount(ctx, acc)
		if err != nil {
			return NewStorageError("upsert_account", err)
		}
		*acc = *saved
		return nil
	}

	updated, err := o.stateMachine.Transition(ctx, SystemActor, account, AccountStatusDisconnected,
		WithTransitionReason("user disconnected"),
		WithTransitionPersister(persist),
	)
	if err != nil {
		return nil, err
	}

	o.metrics.disconnected(platform)
	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountDisconnected,
		UserID:    userID,
		AccountID: updated.ID,
		Platform:  platform,
		ToStatus:  AccountStatusDisconnected,
	})
	return updated, nil
}

func (o *Orchestrator) refreshWith(ctx context.Context, sealed string) (*OAuthTokens, error) {
	platform := o.Platform()
	if sealed == "" {
		return nil, wrapError(ErrRefreshFailed, platform, "refresh", &ProviderError{
			Platform:    platform,
			Operation:   "refresh",
			Code:        CodeMissingStoredToken,
			Description: "no stored token to refresh with",
		})
	}

	token, err := o.cipher.Decrypt(sealed)
	if err != nil {
		return nil, err
	}

	tokens, err := o.adapter.RefreshAccessToken(ctx, token)
	if err != nil {
		return nil, wrapError(ErrRefreshFailed, platform, "refresh", err)
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, wrapError(ErrRefreshFailed, platform, "refresh", &ProviderError{
			Platform:    platform,
			Operation:   "refresh",
			Code:        "missing_access_token",
			Description: "missing access token",
		})
	}
	return tokens, nil
}

func (o *Orchestrator) markUnhealthy(ctx context.Context, account *SocialAccount, cause error) {
	target := AccountStatusError
	switch KindOf(cause) {
	case KindRefreshUnsupported:
		target = AccountStatusTokenExpired
	case KindRefreshFailed:
		status := ProviderStatus(cause)
		if status == http.StatusBadRequest || status == http.StatusUnauthorized || missingStoredToken(cause) {
			target = AccountStatusTokenExpired
		}
	}

	o.logger.Warn("token refresh failed",
		"platform", account.Platform,
		"user_id", account.UserID,
		"kind", KindOf(cause),
		"status", ProviderStatus(cause),
		"target", target,
	)
	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountRefreshFailed,
		UserID:    account.UserID,
		AccountID: account.ID,
		Platform:  account.Platform,
		Metadata:  map[string]any{"kind": string(KindOf(cause))},
	})
	o.transition(ctx, account, target, string(KindOf(cause)))
}

func (o *Orchestrator) transition(ctx context.Context, account *SocialAccount, target AccountStatus, reason string) {
	from := account.Status
	if _, err := o.stateMachine.Transition(ctx, SystemActor, account, target, WithTransitionReason(reason)); err != nil {
		o.logger.Error("account status update failed", "platform", account.Platform, "account_id", account.ID, "target", target, "error", err)
		return
	}
	if from != target {
		o.metrics.statusChanged(account.Platform, target)
	}
}

func (o *Orchestrator) seal(tokens *OAuthTokens) (string, string, error) {
	if o.cipher == nil {
		return "", "", ConfigurationError(EncryptionKeyEnv)
	}
	access, err := o.cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return "", "", err
	}
	var refresh string
	if tokens.RefreshToken != "" {
		if refresh, err = o.cipher.Encrypt(tokens.RefreshToken); err != nil {
			return "", "", err
		}
	}
	return access, refresh, nil
}

func (o *Orchestrator) findAccount(ctx context.Context, userID string) (*SocialAccount, error) {
	account, err := o.accounts.FindAccount(ctx, userID, o.Platform())
	if err != nil {
		if IsKind(err, KindAccountNotFound) {
			return nil, err
		}
		return nil, NewStorageError("find_account", err)
	}
	if account == nil {
		return nil, NewAccountNotFound(userID, o.Platform())
	}
	return account, nil
}

func (o *Orchestrator) checkCredentials() error {
	creds := o.adapter.Credentials()
	platform := o.Platform()
	if creds.ClientID == "" {
		return ConfigurationError(ClientIDEnv(platform))
	}
	if creds.ClientSecret == "" {
		return ConfigurationError(ClientSecretEnv(platform))
	}
	return nil
}

func (o *Orchestrator) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = SystemActor
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = o.now()
	}
	if err := normalizeActivitySink(o.activitySink).Record(ctx, event); err != nil {
		o.logger.Warn("activity sink error", "error", err)
	}
}
