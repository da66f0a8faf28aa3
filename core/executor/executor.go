// Package executor renders queries and hands them to a transport, emitting
// lifecycle events and keeping a history of what was sent.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-dalmatiner/core"
	"github.com/asaidimu/go-dalmatiner/core/query"
	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHistory records every executed query in store.
func WithHistory(store core.HistoryStore) Option {
	return func(e *Executor) {
		e.history = store
	}
}

// Executor orchestrates query execution by coordinating rendering, the
// history store and the transport.
type Executor struct {
	transport     core.Transport
	history       core.HistoryStore
	bus           *events.TypedEventBus[core.QueryEvent]
	subscriptions map[string]*core.SubscriptionInfo
	subMu         sync.RWMutex
	logger        *zap.Logger
}

// NewExecutor creates a new Executor sending queries through transport.
func NewExecutor(transport core.Transport, opts ...Option) (*Executor, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	bus, err := events.NewTypedEventBus[core.QueryEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	e := &Executor{
		transport:     transport,
		bus:           bus,
		subscriptions: map[string]*core.SubscriptionInfo{},
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute renders qb and sends it to the transport. Nothing is sent when the
// query cannot be rendered.
func (e *Executor) Execute(ctx context.Context, qb *query.QueryBuilder) ([]byte, error) {
	startTime := time.Now()
	base := core.QueryEvent{QueryID: qb.ID(), Collection: qb.Collection()}

	e.emitEvent(createEvent(base, core.QueryExecuteStart, nil, time.Time{}))

	rendered, err := qb.Render()
	if err != nil {
		e.logger.Debug("Query could not be rendered", zap.String("query_id", qb.ID()), zap.Error(err))
		e.emitEvent(createEvent(base, core.QueryRenderFailed, err, startTime))
		return nil, fmt.Errorf("failed to render query %s: %w", qb.ID(), err)
	}
	base.Query = rendered

	e.record(ctx, base, startTime)

	e.logger.Debug("Executing query", zap.String("query_id", qb.ID()), zap.String("query", rendered))
	result, err := e.transport.Query(ctx, rendered)
	if err != nil {
		e.logger.Error("Failed to execute query", zap.Error(err), zap.String("query", rendered))
		e.emitEvent(createEvent(base, core.QueryExecuteFailed, err, startTime))
		return nil, fmt.Errorf("failed to execute query %s: %w", qb.ID(), err)
	}

	e.emitEvent(createEvent(base, core.QueryExecuteSuccess, nil, startTime))
	return result, nil
}

// record stores the rendered query. A failing history store does not stop
// execution; it is logged and reported as an event.
func (e *Executor) record(ctx context.Context, base core.QueryEvent, startTime time.Time) {
	if e.history == nil {
		return
	}
	entry := core.HistoryEntry{
		ID:         base.QueryID,
		Query:      base.Query,
		Collection: base.Collection,
		RenderedAt: time.Now().UnixMilli(),
	}
	if err := e.history.Record(ctx, entry); err != nil {
		e.logger.Warn("Failed to record query history", zap.String("query_id", base.QueryID), zap.Error(err))
		e.emitEvent(createEvent(base, core.HistoryRecordFailed, err, startTime))
	}
}

// History returns the most recent queries recorded by the executor.
func (e *Executor) History(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	if e.history == nil {
		return []core.HistoryEntry{}, nil
	}
	return e.history.Recent(ctx, limit)
}

// emitEvent is a helper method to emit events
func (e *Executor) emitEvent(event core.QueryEvent) {
	if e.bus != nil {
		e.bus.Emit(string(event.Type), event)
	}
}

// RegisterSubscription registers a callback for one event type and returns
// the subscription id.
func (e *Executor) RegisterSubscription(options core.RegisterSubscriptionOptions) string {
	e.subMu.Lock()
	unsubscribe := e.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()
	e.subscriptions[id] = &core.SubscriptionInfo{
		ID:          id,
		Event:       options.Event,
		Unsubscribe: unsubscribe,
		Label:       options.Label,
		Description: options.Description,
	}
	e.subMu.Unlock()

	e.emitEvent(core.QueryEvent{
		Type:      core.SubscriptionRegister,
		Timestamp: time.Now().UnixMilli(),
		Context: map[string]any{
			"event":          options.Event,
			"subscriptionId": id,
		},
	})
	return id
}

// UnregisterSubscription removes a subscription. Unknown ids are ignored.
func (e *Executor) UnregisterSubscription(id string) {
	e.subMu.Lock()
	info := e.subscriptions[id]
	if info != nil {
		info.Unsubscribe()
		delete(e.subscriptions, id)
	}
	e.subMu.Unlock()

	if info != nil {
		e.emitEvent(core.QueryEvent{
			Type:      core.SubscriptionUnregister,
			Timestamp: time.Now().UnixMilli(),
			Context:   map[string]any{"subscriptionId": id},
		})
	}
}

// Subscriptions returns all registered subscriptions.
func (e *Executor) Subscriptions() []core.SubscriptionInfo {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	out := make([]core.SubscriptionInfo, 0, len(e.subscriptions))
	for _, info := range e.subscriptions {
		out = append(out, *info)
	}
	return out
}
