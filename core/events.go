package core

import (
	"context"
)

// QueryEventType defines the possible event types emitted while executing a query.
type QueryEventType string

const (
	QueryExecuteStart      QueryEventType = "query:execute:start"
	QueryExecuteSuccess    QueryEventType = "query:execute:success"
	QueryExecuteFailed     QueryEventType = "query:execute:failed"
	QueryRenderFailed      QueryEventType = "query:render:failed"
	HistoryRecordFailed    QueryEventType = "history:record:failed"
	SubscriptionRegister   QueryEventType = "subscription:register"
	SubscriptionUnregister QueryEventType = "subscription:unregister"
)

// QueryEvent represents events emitted during query execution.
type QueryEvent struct {
	Type       QueryEventType `json:"type"`                 // The type of event (e.g., 'query:execute:start').
	Timestamp  int64          `json:"timestamp"`            // Timestamp when the event occurred (Unix milliseconds).
	QueryID    string         `json:"queryId"`              // Identifier of the query builder.
	Collection string         `json:"collection,omitempty"` // Collection the query reads from.
	Query      string         `json:"query,omitempty"`      // Rendered query text, once available.
	Error      *string        `json:"error,omitempty"`      // Error message if the operation failed.
	Duration   *int64         `json:"duration,omitempty"`   // Duration of the operation in milliseconds.
	Context    map[string]any `json:"context,omitempty"`    // Additional context specific to the event.
}

type CallbackFunction func(ctx context.Context, event QueryEvent) error

// SubscriptionInfo describes a subscription configuration.
type SubscriptionInfo struct {
	ID          string         `json:"id"`
	Event       QueryEventType `json:"event"`                 // The event subscribed to.
	Label       *string        `json:"label,omitempty"`       // Optional short identifier.
	Description *string        `json:"description,omitempty"` // Optional description.
	Unsubscribe func()         `json:"-"`
}

// RegisterSubscriptionOptions defines options for registering a subscription.
type RegisterSubscriptionOptions struct {
	Event       QueryEventType `json:"event"`
	Label       *string        `json:"label,omitempty"`
	Description *string        `json:"description,omitempty"`
	Callback    CallbackFunction
}
