package core

import "context"

// Transport sends rendered query text to a DalmatinerDB front end and returns
// the raw response body. Decoding the response is left to the caller.
type Transport interface {
	Query(ctx context.Context, query string) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, query string) ([]byte, error)

// Query calls f(ctx, query).
func (f TransportFunc) Query(ctx context.Context, query string) ([]byte, error) {
	return f(ctx, query)
}

// HistoryEntry is one rendered query kept by a HistoryStore.
type HistoryEntry struct {
	ID         string  `json:"id"`
	Query      string  `json:"query"`
	Collection string  `json:"collection"`
	RenderedAt int64   `json:"renderedAt"` // Unix milliseconds.
	Error      *string `json:"error,omitempty"`
}

// HistoryStore keeps a log of executed queries.
type HistoryStore interface {
	Record(ctx context.Context, entry HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
}
