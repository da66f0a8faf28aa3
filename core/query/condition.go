package query

import (
	"fmt"
)

// ConditionOperator identifies the kind of a Condition node.
type ConditionOperator string

// Supported condition operators.
const (
	ConditionOperatorEq  ConditionOperator = "eq"
	ConditionOperatorAnd ConditionOperator = "and"
	ConditionOperatorOr  ConditionOperator = "or"
)

// KeyPath addresses a tag, optionally qualified by a namespace.
type KeyPath struct {
	Namespace string
	Key       string
}

// Key returns a KeyPath without a namespace.
func Key(name string) KeyPath {
	return KeyPath{Key: name}
}

// Path returns a namespace-qualified KeyPath.
func Path(namespace, name string) KeyPath {
	return KeyPath{Namespace: namespace, Key: name}
}

// Condition is an immutable filter predicate tree. Leaves compare a tag with a
// value, inner nodes combine two conditions with AND or OR. Combinators never
// modify their operands, so a condition may be shared between several trees.
type Condition struct {
	op    ConditionOperator
	path  KeyPath
	value any
	left  *Condition
	right *Condition
	err   error
}

// Equals builds an equality leaf.
func Equals(path KeyPath, value any) *Condition {
	return &Condition{op: ConditionOperatorEq, path: path, value: value}
}

// And returns a new condition matching when both c and other match.
func (c *Condition) And(other *Condition) *Condition {
	return combine(ConditionOperatorAnd, c, other)
}

// Or returns a new condition matching when either c or other matches.
func (c *Condition) Or(other *Condition) *Condition {
	return combine(ConditionOperatorOr, c, other)
}

func combine(op ConditionOperator, left, right *Condition) *Condition {
	node := &Condition{op: op, left: left, right: right}
	if left == nil || right == nil {
		node.err = fmt.Errorf("%w: cannot combine with a nil condition using %s", ErrInvalidCondition, op)
	}
	return node
}

// Operator returns the operator of this node.
func (c *Condition) Operator() ConditionOperator {
	return c.op
}

// Err reports a construction error anywhere in the tree.
func (c *Condition) Err() error {
	if c == nil {
		return ErrInvalidCondition
	}
	if c.err != nil {
		return c.err
	}
	if c.op == ConditionOperatorEq {
		return nil
	}
	if err := c.left.Err(); err != nil {
		return err
	}
	return c.right.Err()
}

// Render serializes the tree into the engine's predicate syntax. Values are
// interpolated verbatim; quotes inside keys or values are not escaped.
func (c *Condition) Render() (string, error) {
	if err := c.Err(); err != nil {
		return "", err
	}
	return c.render(), nil
}

func (c *Condition) render() string {
	switch c.op {
	case ConditionOperatorEq:
		if c.path.Namespace != "" {
			return fmt.Sprintf("%s:'%s' = '%s'", c.path.Namespace, c.path.Key, FormatValue(c.value))
		}
		return fmt.Sprintf("'%s' = '%s'", c.path.Key, FormatValue(c.value))
	case ConditionOperatorAnd:
		return c.left.render() + " AND " + c.right.render()
	case ConditionOperatorOr:
		return c.left.render() + " OR " + c.right.render()
	}
	return ""
}

// String implements fmt.Stringer. An invalid tree renders as an empty string.
func (c *Condition) String() string {
	s, _ := c.Render()
	return s
}
