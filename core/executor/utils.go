package executor

import (
	"time"

	"github.com/asaidimu/go-dalmatiner/core"
)

// createEvent fills in the type, timestamp, error and duration of an event
// derived from base.
func createEvent(base core.QueryEvent, eventType core.QueryEventType, err error, startTime time.Time) core.QueryEvent {
	event := base
	event.Type = eventType
	event.Timestamp = time.Now().UnixMilli()
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		event.Duration = &d
	}
	if err != nil {
		errStr := err.Error()
		event.Error = &errStr
	}
	return event
}
