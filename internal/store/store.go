// Package store persists the audit log of answered chat exchanges.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/guarded-chat/internal/model"
)

// ErrNotFound is returned when an exchange does not exist.
var ErrNotFound = eris.New("store: not found")

// Store drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ExchangeFilter specifies criteria for listing exchanges.
type ExchangeFilter struct {
	ConversationID string                   `json:"conversation_id,omitempty"`
	Confidence     model.EvidenceConfidence `json:"confidence,omitempty"`
	CreatedAfter   time.Time                `json:"created_after,omitempty"`
	Limit          int                      `json:"limit,omitempty"`
	Offset         int                      `json:"offset,omitempty"`
}

// defaultListLimit caps ListExchanges when the filter sets no limit.
const defaultListLimit = 100

// Store defines the persistence interface for the exchange audit log.
type Store interface {
	SaveExchange(ctx context.Context, ex *model.Exchange) error
	GetExchange(ctx context.Context, id string) (*model.Exchange, error)
	ListExchanges(ctx context.Context, filter ExchangeFilter) ([]model.Exchange, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store for the given driver. Recording is disabled
// for "none" or an empty driver, in which case Open returns a nil Store.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "none":
		return nil, nil
	case DriverSQLite:
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func confidenceOf(ex *model.Exchange) string {
	if ex.Response.Guardrails == nil {
		return ""
	}
	return string(ex.Response.Guardrails.EvidenceConfidence)
}
