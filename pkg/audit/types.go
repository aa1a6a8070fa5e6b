// Package audit records who changed what: sharing grants and the admin
// provider/model/route console both log through it.
package audit

import (
	"context"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Sharing events
	EventTypeShareGrant  EventType = "share.grant"
	EventTypeShareRevoke EventType = "share.revoke"

	// AI routing admin events
	EventTypeProviderCreate EventType = "ai.provider_create"
	EventTypeProviderUpdate EventType = "ai.provider_update"
	EventTypeProviderDelete EventType = "ai.provider_delete"
	EventTypeModelCreate    EventType = "ai.model_create"
	EventTypeModelUpdate    EventType = "ai.model_update"
	EventTypeModelDelete    EventType = "ai.model_delete"
	EventTypeRouteCreate    EventType = "ai.route_create"
	EventTypeRouteUpdate    EventType = "ai.route_update"
	EventTypeRouteDelete    EventType = "ai.route_delete"
	EventTypeModelTestCall  EventType = "ai.model_test_call"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID           int64       `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	EventType    EventType   `json:"event_type"`
	Status       EventStatus `json:"status"`
	ActorID      string      `json:"actor_id,omitempty"`
	ResourceType string      `json:"resource_type,omitempty"`
	ResourceID   string      `json:"resource_id,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// Logger records audit events. Implementations must never fail the
// operation being audited; logging errors are swallowed after being
// reported through their own channel.
type Logger interface {
	Log(ctx context.Context, event *Event)
}

// NopLogger discards events. Useful in tests and for deployments that
// ship audit records elsewhere.
type NopLogger struct{}

// Log implements Logger.
func (NopLogger) Log(ctx context.Context, event *Event) {}
