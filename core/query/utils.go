// Package query provides a set of utility functions to support the query builder
// and its renderers. These helpers turn Go values into the literal text the
// query engine expects.
package query

import (
	"fmt"
	"strconv"
	"time"
)

// Renderable is implemented by every node that can serialize itself into
// query text: conditions, selectors and function applications.
type Renderable interface {
	Render() (string, error)
}

// resolveName turns a collection or metric path segment into its string form.
// Strings are taken as-is, renderable values are rendered and everything else
// is formatted like a literal.
func resolveName(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case Renderable:
		return val.Render()
	default:
		return FormatValue(val), nil
	}
}

// FormatValue returns the textual form of a literal value. Integers are written
// in base 10, floats in their shortest form and durations as whole seconds
// (or milliseconds when they are not a whole number of seconds).
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		if d, ok := val.(time.Duration); ok {
			return formatDuration(d)
		}
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatDuration(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
