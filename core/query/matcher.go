package query

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Tags holds the tag values of a single series.
type Tags map[KeyPath]string

// PredicateFunction decides whether a tag value satisfies an equality leaf.
// The default predicate compares the formatted value for equality.
type PredicateFunction func(tagValue string, want any) bool

// Matcher evaluates conditions against series tags in memory, for example to
// preview which known series a WHERE clause would select.
type Matcher struct {
	predicates map[string]PredicateFunction
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewMatcher creates a new Matcher instance.
func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		predicates: make(map[string]PredicateFunction),
		logger:     logger,
	}
}

// RegisterPredicate overrides equality for tags in the given namespace.
// An empty namespace applies to tags without one.
func (m *Matcher) RegisterPredicate(namespace string, fn PredicateFunction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predicates[namespace] = fn
	m.logger.Info("Registered tag predicate", zap.String("namespace", namespace))
}

// Match reports whether tags satisfy cond. A nil condition matches everything.
func (m *Matcher) Match(cond *Condition, tags Tags) (bool, error) {
	if cond == nil {
		return true, nil
	}
	if err := cond.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evaluate(cond, tags)
}

// Filter returns the tag sets matching cond, in their original order.
func (m *Matcher) Filter(cond *Condition, series []Tags) ([]Tags, error) {
	var matched []Tags
	for _, tags := range series {
		ok, err := m.Match(cond, tags)
		if err != nil {
			return nil, fmt.Errorf("error evaluating condition for series %v: %w", tags, err)
		}
		if ok {
			matched = append(matched, tags)
		}
	}
	m.logger.Debug("Series remaining after filter", zap.Int("count", len(matched)))
	return matched, nil
}

func (m *Matcher) evaluate(cond *Condition, tags Tags) (bool, error) {
	switch cond.op {
	case ConditionOperatorEq:
		value, ok := tags[cond.path]
		if !ok {
			return false, nil
		}
		if fn, ok := m.predicates[cond.path.Namespace]; ok {
			return fn(value, cond.value), nil
		}
		return value == FormatValue(cond.value), nil
	case ConditionOperatorAnd:
		passes, err := m.evaluate(cond.left, tags)
		if err != nil || !passes {
			return false, err
		}
		return m.evaluate(cond.right, tags)
	case ConditionOperatorOr:
		passes, err := m.evaluate(cond.left, tags)
		if err != nil {
			return false, err
		}
		if passes {
			return true, nil
		}
		return m.evaluate(cond.right, tags)
	default:
		return false, fmt.Errorf("unsupported condition operator: %s", cond.op)
	}
}
