package domain

import (
	"context"
	"time"
)

// TradeFilter narrows blotter queries. Zero fields match everything.
type TradeFilter struct {
	Counterparty string
	Book         string
	Trader       string
	Status       TradeStatus
	FromDate     *time.Time
	ToDate       *time.Time
	ActiveOnly   bool
}

// TradeRepository is the persistence gateway for trades. A trade version
// is stored as one aggregate: the version row, its legs and their
// cashflows are written atomically within a single SaveVersion or
// Supersede call, so a failed step never leaves a partial version active.
type TradeRepository interface {
	// NextTradeID allocates the next trade business key from an atomic
	// sequence. Allocated keys start at 10000.
	NextTradeID(ctx context.Context) (int64, error)

	// GetActive retrieves the currently active version for a trade id,
	// with legs and cashflows loaded. Returns (nil, nil) when no active
	// version exists.
	GetActive(ctx context.Context, tradeID int64) (*Trade, error)

	// ListVersions retrieves every stored version for a trade id,
	// ordered by version ascending.
	ListVersions(ctx context.Context, tradeID int64) ([]*Trade, error)

	// SaveVersion inserts a new trade version with its legs and
	// cashflows in one atomic write.
	SaveVersion(ctx context.Context, trade *Trade) error

	// Supersede atomically deactivates the active version identified by
	// next.TradeID and expectedVersion, stamps it with deactivatedAt,
	// and inserts next as the new active version. Returns
	// ConcurrencyConflictError when the active version no longer
	// matches expectedVersion.
	Supersede(ctx context.Context, expectedVersion int, deactivatedAt time.Time, next *Trade) error

	// UpdateStatus persists an in-place status and last-touch change on
	// an existing version row.
	UpdateStatus(ctx context.Context, trade *Trade) error

	// List retrieves trades matching the filter for blotter views.
	List(ctx context.Context, filter TradeFilter) ([]*Trade, error)
}
