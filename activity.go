package oauth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountConnected     ActivityEventType = "oauth.account.connected"
	ActivityEventAccountRefreshed     ActivityEventType = "oauth.account.refreshed"
	ActivityEventAccountRefreshFailed ActivityEventType = "oauth.account.refresh_failed"
	ActivityEventAccountDisconnected  ActivityEventType = "oauth.account.disconnected"
	ActivityEventAccountStatusChanged ActivityEventType = "oauth.account.status.changed"
	ActivityEventCallbackFailed       ActivityEventType = "oauth.callback.failed"
)

// ActivityEvent captures audit-friendly information about an action. It
// never carries token values.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	AccountID  string
	Platform   Platform
	FromStatus AccountStatus
	ToStatus   AccountStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// LoggerActivitySink writes events to a Logger.
func LoggerActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		args := []any{
			"event", string(event.EventType),
			"user_id", event.UserID,
			"platform", string(event.Platform),
		}
		if event.FromStatus != "" || event.ToStatus != "" {
			args = append(args, "from", string(event.FromStatus), "to", string(event.ToStatus))
		}
		for k, v := range event.Metadata {
			args = append(args, k, v)
		}
		logger.Info("activity", args...)
		return nil
	})
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
