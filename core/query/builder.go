// Package query provides a fluent API for building DalmatinerDB queries and
// rendering them into the engine's query language.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a QueryBuilder.
type Option func(*QueryBuilder)

// WithLogger sets the logger used for render and apply traces.
func WithLogger(logger *zap.Logger) Option {
	return func(qb *QueryBuilder) {
		if logger != nil {
			qb.logger = logger
		}
	}
}

// WithClock sets the reference time used to evaluate relative time
// expressions such as "now-1h".
func WithClock(now func() time.Time) Option {
	return func(qb *QueryBuilder) {
		if now != nil {
			qb.now = now
		}
	}
}

// QueryBuilder accumulates the parts of a query through chained calls.
//
// Chained methods cannot return an error, so the first failure is recorded:
// Err reports it right after the call that caused it, later mutating calls
// become no-ops and Render returns it. A QueryBuilder is meant to be used by a
// single goroutine.
type QueryBuilder struct {
	id         string
	collection string
	slots      []Renderable
	selectors  []*selector
	active     int
	variables  Variables
	condition  *Condition
	timeRange  TimeRange
	err        error
	logger     *zap.Logger
	now        func() time.Time
}

// NewQueryBuilder creates a new, empty query builder instance.
func NewQueryBuilder(opts ...Option) *QueryBuilder {
	qb := &QueryBuilder{
		id:        uuid.New().String(),
		active:    -1,
		variables: Variables{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(qb)
	}
	return qb
}

// ID returns the identifier of this builder, used to correlate logs and events.
func (qb *QueryBuilder) ID() string {
	return qb.id
}

// Err returns the first error recorded by a chained call, if any.
func (qb *QueryBuilder) Err() error {
	return qb.err
}

// Reset clears all configurations from the query builder, returning it to its
// initial state. The identifier, logger and clock are kept.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	qb.collection = ""
	qb.slots = nil
	qb.selectors = nil
	qb.active = -1
	qb.variables = Variables{}
	qb.condition = nil
	qb.timeRange = TimeRange{}
	qb.err = nil
	return qb
}

func (qb *QueryBuilder) fail(err error) *QueryBuilder {
	qb.err = err
	qb.logger.Debug("Query builder error", zap.String("query_id", qb.id), zap.Error(err))
	return qb
}

// From sets the collection to query. It accepts a string, a Renderable or any
// value that can be formatted.
func (qb *QueryBuilder) From(collection any) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	name, err := resolveName(collection)
	if err != nil {
		return qb.fail(fmt.Errorf("invalid collection: %w", err))
	}
	qb.collection = name
	return qb
}

// Select adds a selector for the metric made of the given path segments and
// makes it the target of subsequent Apply and Filter calls.
func (qb *QueryBuilder) Select(path ...any) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	metric := make([]string, len(path))
	for i, segment := range path {
		name, err := resolveName(segment)
		if err != nil {
			return qb.fail(fmt.Errorf("invalid metric segment %d: %w", i, err))
		}
		metric[i] = name
	}
	sel := &selector{builder: qb, metric: metric}
	qb.selectors = append(qb.selectors, sel)
	qb.slots = append(qb.slots, sel)
	qb.active = len(qb.slots) - 1
	return qb
}

// BeginningAt sets the start of the query window. See ParseTime for the
// accepted inputs.
func (qb *QueryBuilder) BeginningAt(t any) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	parsed, err := ParseTime(t, qb.now())
	if err != nil {
		return qb.fail(fmt.Errorf("beginning: %w", err))
	}
	qb.timeRange.Beginning = parsed
	return qb
}

// EndingAt sets the end of the query window. See ParseTime for the accepted
// inputs.
func (qb *QueryBuilder) EndingAt(t any) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	parsed, err := ParseTime(t, qb.now())
	if err != nil {
		return qb.fail(fmt.Errorf("ending: %w", err))
	}
	qb.timeRange.Ending = parsed
	return qb
}

// With declares a variable that function arguments can reference as $name.
// Declaring the same name again overwrites the previous value.
func (qb *QueryBuilder) With(name string, value any) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	qb.variables[name] = value
	return qb
}

// Where sets the condition applied to every selector that has no condition
// of its own.
func (qb *QueryBuilder) Where(condition *Condition) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if err := condition.Err(); err != nil {
		return qb.fail(fmt.Errorf("where: %w", err))
	}
	qb.condition = condition
	return qb
}

// Filter sets a condition for the active selector only. It takes precedence
// over the condition given to Where.
func (qb *QueryBuilder) Filter(condition *Condition) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if qb.active < 0 {
		return qb.fail(fmt.Errorf("filter: %w", ErrNoActiveSelector))
	}
	if err := condition.Err(); err != nil {
		return qb.fail(fmt.Errorf("filter: %w", err))
	}
	qb.selectors[qb.active].condition = condition
	return qb
}

// Apply wraps the active selector, or the function already wrapping it, in a
// call to fun. The wrapped value becomes the first argument, followed by args.
func (qb *QueryBuilder) Apply(fun string, args ...any) *QueryBuilder {
	if qb.err != nil {
		return qb
	}
	if qb.active < 0 {
		return qb.fail(fmt.Errorf("apply %s: %w", fun, ErrNoActiveSelector))
	}
	fargs := make([]any, 0, len(args)+1)
	fargs = append(fargs, qb.slots[qb.active])
	fargs = append(fargs, args...)
	qb.slots[qb.active] = NewFunction(fun, fargs, qb.variables)
	qb.logger.Debug("Applied function",
		zap.String("query_id", qb.id),
		zap.String("function", fun),
		zap.Int("selector", qb.active),
	)
	return qb
}

// Render returns the complete query: the SELECT clause followed by the time
// range clause.
func (qb *QueryBuilder) Render() (string, error) {
	sel, err := qb.RenderSelectClause()
	if err != nil {
		return "", err
	}
	rng, err := qb.timeRange.Render()
	if err != nil {
		return "", err
	}
	q := sel + " " + rng
	qb.logger.Debug("Rendered query", zap.String("query_id", qb.id), zap.String("query", q))
	return q, nil
}

// RenderSelectClause returns `SELECT` followed by every selector, joined by
// commas, without the time range.
func (qb *QueryBuilder) RenderSelectClause() (string, error) {
	if qb.err != nil {
		return "", qb.err
	}
	if len(qb.slots) == 0 {
		return "", ErrNoActiveSelector
	}
	if qb.collection == "" {
		return "", ErrMissingCollection
	}
	parts := make([]string, len(qb.slots))
	for i, slot := range qb.slots {
		s, err := slot.Render()
		if err != nil {
			return "", fmt.Errorf("selector %d: %w", i, err)
		}
		parts[i] = s
	}
	return "SELECT " + strings.Join(parts, ", "), nil
}

// TimeRange returns the current query window.
func (qb *QueryBuilder) TimeRange() TimeRange {
	return qb.timeRange
}

// Collection returns the collection the query reads from.
func (qb *QueryBuilder) Collection() string {
	return qb.collection
}

// String returns the rendered query, or a description of why it cannot be
// rendered.
func (qb *QueryBuilder) String() string {
	q, err := qb.Render()
	if err != nil {
		return "INVALID QUERY: " + err.Error()
	}
	return q
}

// selector renders one metric of the query. The collection and the shared
// condition are read from the builder when rendering, so changes made after
// Select are reflected.
type selector struct {
	builder   *QueryBuilder
	metric    []string
	condition *Condition
}

func (s *selector) Render() (string, error) {
	quoted := make([]string, len(s.metric))
	for i, part := range s.metric {
		quoted[i] = "'" + part + "'"
	}
	str := fmt.Sprintf("%s IN '%s'", strings.Join(quoted, "."), s.builder.collection)

	condition := s.condition
	if condition == nil {
		condition = s.builder.condition
	}
	if condition != nil {
		where, err := condition.Render()
		if err != nil {
			return "", err
		}
		str += " WHERE " + where
	}
	return str, nil
}
