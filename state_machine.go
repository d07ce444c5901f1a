package oauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// SystemActor is used for transitions started by background jobs.
var SystemActor = ActorRef{Type: "system"}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	Actor   ActorRef
	Account *SocialAccount
	From    AccountStatus
	To      AccountStatus
	Meta    TransitionMetadata
}

// TransitionHook is executed before or after a transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// AccountStateMachine moves accounts between ACTIVE, TOKEN_EXPIRED, ERROR
// and DISCONNECTED.
type AccountStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, account *SocialAccount, target AccountStatus, opts ...TransitionOption) (*SocialAccount, error)
	CanTransition(from, to AccountStatus) bool
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.beforeHooks = append(opts.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after the status update succeeds.
func WithAfterTransitionHook(h TransitionHook) TransitionOption {
	return func(opts *transitionOptions) {
		if h != nil {
			opts.afterHooks = append(opts.afterHooks, h)
		}
	}
}

// WithTransitionPersister replaces the status only update with fn, for
// transitions that change more than the status column.
func WithTransitionPersister(fn func(ctx context.Context, account *SocialAccount) error) TransitionOption {
	return func(opts *transitionOptions) {
		opts.persist = fn
	}
}

// NewAccountStateMachine returns the default implementation backed by accounts.
func NewAccountStateMachine(accounts AccountStore, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		accounts: accounts,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusActive: {
				AccountStatusTokenExpired: {},
				AccountStatusError:        {},
				AccountStatusDisconnected: {},
			},
			AccountStatusTokenExpired: {
				AccountStatusActive:       {},
				AccountStatusError:        {},
				AccountStatusDisconnected: {},
			},
			AccountStatusError: {
				AccountStatusActive:       {},
				AccountStatusTokenExpired: {},
				AccountStatusDisconnected: {},
			},
			AccountStatusDisconnected: {
				AccountStatusActive: {},
			},
		},
		now:          nowUTC,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	accounts     AccountStore
	transitions  map[AccountStatus]map[AccountStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata    TransitionMetadata
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
	persist     func(ctx context.Context, account *SocialAccount) error
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *accountStateMachine) Transition(ctx context.Context, actor ActorRef, account *SocialAccount, target AccountStatus, opts ...TransitionOption) (*SocialAccount, error) {
	if account == nil {
		return nil, invalidTransition(map[string]any{
			"target": target,
			"reason": "account is nil",
		})
	}
	if target == "" {
		return nil, invalidTransition(map[string]any{
			"reason": "target status is empty",
		})
	}

	from := account.Status
	if from == "" {
		from = AccountStatusActive
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if from == target && options.persist == nil {
		return account, nil
	}

	if from != target && !sm.CanTransition(from, target) {
		return nil, invalidTransition(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	tc := TransitionContext{
		Actor:   actor,
		Account: account,
		From:    from,
		To:      target,
		Meta:    options.cloneMetadata(),
	}

	if err := runHooks(ctx, options.beforeHooks, tc); err != nil {
		return nil, err
	}

	now := sm.now()
	account.Status = target
	account.LastChecked = &now

	var err error
	if options.persist != nil {
		err = options.persist(ctx, account)
	} else {
		err = sm.accounts.UpdateAccountStatus(ctx, account.ID, target, now)
	}
	if err != nil {
		account.Status = from
		return nil, err
	}

	if err := runHooks(ctx, options.afterHooks, tc); err != nil {
		return nil, err
	}

	if from != target {
		sm.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventAccountStatusChanged,
			Actor:      actor,
			UserID:     account.UserID,
			AccountID:  account.ID,
			Platform:   account.Platform,
			FromStatus: from,
			ToStatus:   target,
			Metadata:   transitionMetadata(tc.Meta),
			OccurredAt: now,
		})
	}

	return account, nil
}

func (sm *accountStateMachine) CanTransition(from, to AccountStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *accountStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = SystemActor
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error", "error", err)
	}
}

func runHooks(ctx context.Context, hooks []TransitionHook, tc TransitionContext) error {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}

func invalidTransition(meta map[string]any) error {
	clone := ErrInvalidTransition.Clone()
	if clone == nil {
		return ErrInvalidTransition
	}
	return clone.WithMetadata(meta)
}

func transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
