package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asaidimu/go-dalmatiner/core"
	"github.com/asaidimu/go-dalmatiner/core/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryHistory struct {
	mu      sync.Mutex
	entries []core.HistoryEntry
	err     error
}

func (h *memoryHistory) Record(ctx context.Context, entry core.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.entries = append(h.entries, entry)
	return nil
}

func (h *memoryHistory) Recent(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []core.HistoryEntry{}
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []core.QueryEvent
}

func (r *eventRecorder) callback(ctx context.Context, event core.QueryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) snapshot() []core.QueryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.QueryEvent(nil), r.events...)
}

func newQuery() *query.QueryBuilder {
	end := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return query.NewQueryBuilder().
		From("servers").
		Select("cpu", "usage").
		Where(query.Equals(query.Key("host"), "a")).
		BeginningAt(end.Add(-time.Hour)).
		EndingAt(end)
}

func TestNewExecutor(t *testing.T) {
	_, err := NewExecutor(nil)
	assert.Error(t, err)

	e, err := NewExecutor(core.TransportFunc(func(ctx context.Context, q string) ([]byte, error) {
		return nil, nil
	}), WithLogger(zap.NewNop()), WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.bus)
	assert.Nil(t, e.history)
}

func TestExecutor_Execute(t *testing.T) {
	var sent string
	transport := core.TransportFunc(func(ctx context.Context, q string) ([]byte, error) {
		sent = q
		return []byte(`{"d":[]}`), nil
	})
	history := &memoryHistory{}
	e, err := NewExecutor(transport, WithHistory(history))
	require.NoError(t, err)

	recorder := &eventRecorder{}
	e.RegisterSubscription(core.RegisterSubscriptionOptions{Event: core.QueryExecuteSuccess, Callback: recorder.callback})

	qb := newQuery()
	out, err := e.Execute(context.Background(), qb)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"d":[]}`), out)

	expected := `SELECT 'cpu'.'usage' IN 'servers' WHERE 'host' = 'a' BEFORE "2023-01-01 00:00:00" FOR 3600s`
	assert.Equal(t, expected, sent)

	recent, err := e.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, qb.ID(), recent[0].ID)
	assert.Equal(t, expected, recent[0].Query)
	assert.Equal(t, "servers", recent[0].Collection)

	assert.Eventually(t, func() bool { return len(recorder.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	event := recorder.snapshot()[0]
	assert.Equal(t, core.QueryExecuteSuccess, event.Type)
	assert.Equal(t, qb.ID(), event.QueryID)
	assert.Equal(t, expected, event.Query)
	assert.NotNil(t, event.Duration)
	assert.Nil(t, event.Error)
}

func TestExecutor_RenderFailure(t *testing.T) {
	called := false
	transport := core.TransportFunc(func(ctx context.Context, q string) ([]byte, error) {
		called = true
		return nil, nil
	})
	history := &memoryHistory{}
	e, err := NewExecutor(transport, WithHistory(history))
	require.NoError(t, err)

	recorder := &eventRecorder{}
	e.RegisterSubscription(core.RegisterSubscriptionOptions{Event: core.QueryRenderFailed, Callback: recorder.callback})

	qb := newQuery().Apply("f", "$missing")
	_, err = e.Execute(context.Background(), qb)
	assert.ErrorIs(t, err, query.ErrUndeclaredVariable)
	assert.False(t, called)
	assert.Empty(t, history.entries)

	assert.Eventually(t, func() bool { return len(recorder.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	event := recorder.snapshot()[0]
	require.NotNil(t, event.Error)
	assert.Contains(t, *event.Error, "missing")
}

func TestExecutor_TransportFailure(t *testing.T) {
	boom := errors.New("connection refused")
	transport := core.TransportFunc(func(ctx context.Context, q string) ([]byte, error) {
		return nil, boom
	})
	e, err := NewExecutor(transport)
	require.NoError(t, err)

	recorder := &eventRecorder{}
	e.RegisterSubscription(core.RegisterSubscriptionOptions{Event: core.QueryExecuteFailed, Callback: recorder.callback})

	_, err = e.Execute(context.Background(), newQuery())
	assert.ErrorIs(t, err, boom)
	assert.Eventually(t, func() bool { return len(recorder.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestExecutor_HistoryFailureDoesNotStopExecution(t *testing.T) {
	sent := false
	transport := core.TransportFunc(func(ctx context.Context, q string) ([]byte, error) {
		sent = true
		return nil, nil
	})
	e, err := NewExecutor(transport, WithHistory(&memoryHistory{err: errors.New("disk full")}))
	require.NoError(t, err)

	recorder := &eventRecorder{}
	e.RegisterSubscription(core.RegisterSubscriptionOptions{Event: core.HistoryRecordFailed, Callback: recorder.callback})

	_, err = e.Execute(context.Background(), newQuery())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Eventually(t, func() bool { return len(recorder.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestExecutor_Subscriptions(t *testing.T) {
	e, err := NewExecutor(core.TransportFunc(func(ctx context.Context, q string) ([]byte, error) {
		return nil, nil
	}))
	require.NoError(t, err)

	label := "audit"
	id := e.RegisterSubscription(core.RegisterSubscriptionOptions{
		Event:    core.QueryExecuteStart,
		Label:    &label,
		Callback: func(ctx context.Context, event core.QueryEvent) error { return nil },
	})
	assert.NotEmpty(t, id)

	subs := e.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, id, subs[0].ID)
	assert.Equal(t, core.QueryExecuteStart, subs[0].Event)
	assert.Equal(t, &label, subs[0].Label)

	e.UnregisterSubscription("unknown")
	assert.Len(t, e.Subscriptions(), 1)

	e.UnregisterSubscription(id)
	assert.Empty(t, e.Subscriptions())

	history, err := e.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}
