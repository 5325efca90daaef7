package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cashflow is one periodic payment obligation derived from a leg.
// Cashflows are written in batch when a leg is persisted and never
// mutated afterward.
type Cashflow struct {
	ID           uuid.UUID
	LegID        uuid.UUID
	ValueDate    time.Time
	PaymentValue decimal.Decimal // 2 fractional digits, rounded half-up
	Rate         float64         // snapshot of the leg rate at generation time
	PayReceive   *PayRec
	PaymentBDC   *BusinessDayConvention
	Active       bool
	CreatedAt    time.Time
}
