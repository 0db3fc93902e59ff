package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/guarded-chat/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS exchanges (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	conversation_id     TEXT NOT NULL DEFAULT '',
	message_id          TEXT NOT NULL DEFAULT '',
	request             JSONB NOT NULL,
	response            JSONB NOT NULL,
	evidence_confidence TEXT NOT NULL DEFAULT '',
	synthesized         BOOLEAN NOT NULL DEFAULT false,
	provider            TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_exchanges_conversation ON exchanges(conversation_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_confidence ON exchanges(evidence_confidence);
CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveExchange(ctx context.Context, ex *model.Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	reqJSON, err := json.Marshal(ex.Request)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal request")
	}
	respJSON, err := json.Marshal(ex.Response)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal response")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO exchanges (id, conversation_id, message_id, request, response, evidence_confidence, synthesized, provider, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ex.ID, ex.ConversationID, ex.MessageID, reqJSON, respJSON,
		confidenceOf(ex), ex.Synthesized, ex.Provider, ex.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert exchange %s", ex.ID)
}

func (s *PostgresStore) GetExchange(ctx context.Context, id string) (*model.Exchange, error) {
	var ex model.Exchange
	var reqJSON, respJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, conversation_id, message_id, request, response, synthesized, provider, created_at FROM exchanges WHERE id = $1`,
		id,
	).Scan(&ex.ID, &ex.ConversationID, &ex.MessageID, &reqJSON, &respJSON, &ex.Synthesized, &ex.Provider, &ex.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "exchange %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get exchange %s", id)
	}

	if err := decodeExchange(&ex, reqJSON, respJSON); err != nil {
		return nil, eris.Wrap(err, "postgres: decode exchange")
	}
	return &ex, nil
}

func (s *PostgresStore) ListExchanges(ctx context.Context, filter ExchangeFilter) ([]model.Exchange, error) {
	query := `SELECT id, conversation_id, message_id, request, response, synthesized, provider, created_at FROM exchanges WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ConversationID != "" {
		query += fmt.Sprintf(` AND conversation_id = $%d`, argIdx)
		args = append(args, filter.ConversationID)
		argIdx++
	}
	if filter.Confidence != "" {
		query += fmt.Sprintf(` AND evidence_confidence = $%d`, argIdx)
		args = append(args, string(filter.Confidence))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list exchanges")
	}
	defer rows.Close()

	exchanges := []model.Exchange{}
	for rows.Next() {
		var ex model.Exchange
		var reqJSON, respJSON []byte
		if err := rows.Scan(&ex.ID, &ex.ConversationID, &ex.MessageID, &reqJSON, &respJSON,
			&ex.Synthesized, &ex.Provider, &ex.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan exchange")
		}
		if err := decodeExchange(&ex, reqJSON, respJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: decode exchange")
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, eris.Wrap(rows.Err(), "postgres: list exchanges iterate")
}
