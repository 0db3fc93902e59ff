package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/guarded-chat/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS exchanges (
	id                  TEXT PRIMARY KEY,
	conversation_id     TEXT NOT NULL DEFAULT '',
	message_id          TEXT NOT NULL DEFAULT '',
	request             TEXT NOT NULL,
	response            TEXT NOT NULL,
	evidence_confidence TEXT NOT NULL DEFAULT '',
	synthesized         INTEGER NOT NULL DEFAULT 0,
	provider            TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_exchanges_conversation ON exchanges(conversation_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveExchange(ctx context.Context, ex *model.Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	reqJSON, err := json.Marshal(ex.Request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal request")
	}
	respJSON, err := json.Marshal(ex.Response)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal response")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exchanges (id, conversation_id, message_id, request, response, evidence_confidence, synthesized, provider, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.ConversationID, ex.MessageID, string(reqJSON), string(respJSON),
		confidenceOf(ex), ex.Synthesized, ex.Provider, ex.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert exchange %s", ex.ID)
}

func (s *SQLiteStore) GetExchange(ctx context.Context, id string) (*model.Exchange, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, message_id, request, response, synthesized, provider, created_at
		 FROM exchanges WHERE id = ?`,
		id,
	)
	ex, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "exchange %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get exchange %s", id)
	}
	return ex, nil
}

func (s *SQLiteStore) ListExchanges(ctx context.Context, filter ExchangeFilter) ([]model.Exchange, error) {
	query := `SELECT id, conversation_id, message_id, request, response, synthesized, provider, created_at
		FROM exchanges WHERE 1=1`
	var args []any

	if filter.ConversationID != "" {
		query += ` AND conversation_id = ?`
		args = append(args, filter.ConversationID)
	}
	if filter.Confidence != "" {
		query += ` AND evidence_confidence = ?`
		args = append(args, string(filter.Confidence))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list exchanges")
	}
	defer rows.Close() //nolint:errcheck

	exchanges := []model.Exchange{}
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan exchange")
		}
		exchanges = append(exchanges, *ex)
	}
	return exchanges, eris.Wrap(rows.Err(), "sqlite: list exchanges iterate")
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(row scanner) (*model.Exchange, error) {
	var ex model.Exchange
	var reqJSON, respJSON string
	if err := row.Scan(&ex.ID, &ex.ConversationID, &ex.MessageID, &reqJSON, &respJSON,
		&ex.Synthesized, &ex.Provider, &ex.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeExchange(&ex, []byte(reqJSON), []byte(respJSON)); err != nil {
		return nil, err
	}
	return &ex, nil
}

func decodeExchange(ex *model.Exchange, reqJSON, respJSON []byte) error {
	if err := json.Unmarshal(reqJSON, &ex.Request); err != nil {
		return eris.Wrap(err, "unmarshal request")
	}
	if err := json.Unmarshal(respJSON, &ex.Response); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	ex.CreatedAt = ex.CreatedAt.UTC()
	return nil
}
