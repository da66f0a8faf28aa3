// Package sqlite provides a SQLite-backed core.HistoryStore that keeps a log of
// the queries sent to DalmatinerDB.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/asaidimu/go-dalmatiner/core"
	"go.uber.org/zap"
)

// DefaultTableName is the table used when no table name is configured.
const DefaultTableName = "query_history"

// dbRunner is an interface that abstracts the common methods of *sql.DB and *sql.Tx,
// allowing for the same code to be used for both transactional and non-transactional
// database operations.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// HistoryStore is a core.HistoryStore persisting entries in a SQLite table.
type HistoryStore struct {
	db     dbRunner
	table  string
	logger *zap.Logger
}

// Ensure HistoryStore implements the core.HistoryStore interface.
var _ core.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a store writing to DefaultTableName. db may be a
// *sql.DB or a *sql.Tx.
func NewHistoryStore(db dbRunner, logger *zap.Logger) *HistoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryStore{
		db:     db,
		table:  DefaultTableName,
		logger: logger,
	}
}

// quoteIdentifier properly quotes an identifier for SQLite.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Init creates the history table if it does not exist.
func (s *HistoryStore) Init(ctx context.Context) error {
	table := quoteIdentifier(s.table)
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"seq" INTEGER PRIMARY KEY AUTOINCREMENT,
	"id" TEXT NOT NULL,
	"query" TEXT NOT NULL,
	"collection" TEXT NOT NULL,
	"rendered_at" INTEGER NOT NULL,
	"error" TEXT
)`, table)
	s.logger.Debug("Creating history table", zap.String("sql", ddl))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// Record inserts entry.
func (s *HistoryStore) Record(ctx context.Context, entry core.HistoryEntry) error {
	stmt := fmt.Sprintf(`INSERT INTO %s ("id", "query", "collection", "rendered_at", "error") VALUES (?, ?, ?, ?, ?)`,
		quoteIdentifier(s.table))
	var errText any
	if entry.Error != nil {
		errText = *entry.Error
	}

	s.logger.Debug("Executing SQL INSERT", zap.String("sql", stmt), zap.String("query_id", entry.ID))
	if _, err := s.db.ExecContext(ctx, stmt, entry.ID, entry.Query, entry.Collection, entry.RenderedAt, errText); err != nil {
		s.logger.Error("Failed to record query", zap.Error(err), zap.String("sql", stmt))
		return fmt.Errorf("failed to record query %s: %w", entry.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	if limit <= 0 {
		return []core.HistoryEntry{}, nil
	}
	stmt := fmt.Sprintf(`SELECT "id", "query", "collection", "rendered_at", "error" FROM %s ORDER BY "rendered_at" DESC, "seq" DESC LIMIT ?`,
		quoteIdentifier(s.table))

	s.logger.Debug("Executing SQL SELECT", zap.String("sql", stmt), zap.Int("limit", limit))
	rows, err := s.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		s.logger.Error("Failed to execute SELECT query", zap.Error(err), zap.String("sql", stmt))
		return nil, fmt.Errorf("failed to read query history: %w", err)
	}
	defer rows.Close()

	entries := []core.HistoryEntry{}
	for rows.Next() {
		var entry core.HistoryEntry
		var errText sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Query, &entry.Collection, &entry.RenderedAt, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if errText.Valid {
			e := errText.String
			entry.Error = &e
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning rows: %w", err)
	}
	return entries, nil
}
