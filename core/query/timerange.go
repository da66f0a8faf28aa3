package query

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lytics/datemath"
)

// RangeTimeLayout is the layout of the BEFORE timestamp, always in UTC.
const RangeTimeLayout = "2006-01-02 15:04:05"

// TimeRange is the window a query covers.
type TimeRange struct {
	Beginning time.Time
	Ending    time.Time
}

// Duration returns the length of the window rounded to the nearest second,
// halves rounding up.
func (r TimeRange) Duration() int64 {
	ms := r.Ending.Sub(r.Beginning).Milliseconds()
	return int64(math.Floor(float64(ms)/1000 + 0.5))
}

// Render returns `BEFORE "<ending>" FOR <seconds>s`.
func (r TimeRange) Render() (string, error) {
	if r.Beginning.IsZero() || r.Ending.IsZero() {
		return "", ErrMissingTimeRange
	}
	ending := r.Ending.UTC().Format(RangeTimeLayout)
	return fmt.Sprintf("BEFORE \"%s\" FOR %ds", ending, r.Duration()), nil
}

// ParseTime converts the accepted time inputs into a time.Time:
//   - time.Time values are used as given
//   - integers are Unix milliseconds
//   - strings starting with "now" are date math relative to anchor ("now-1h")
//   - any other string is parsed as a date, reading zone-less values as UTC
func ParseTime(v any, anchor time.Time) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero time", ErrInvalidTime)
		}
		return val, nil
	case *time.Time:
		if val == nil {
			return time.Time{}, fmt.Errorf("%w: nil time", ErrInvalidTime)
		}
		return ParseTime(*val, anchor)
	case int:
		return time.UnixMilli(int64(val)), nil
	case int64:
		return time.UnixMilli(val), nil
	case string:
		s := strings.TrimSpace(val)
		if len(s) >= 3 && strings.ToLower(s[:3]) == "now" {
			t, err := datemath.EvalAnchor(anchor, s)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTime, val, err)
			}
			return t, nil
		}
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTime, val, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidTime, v)
	}
}
