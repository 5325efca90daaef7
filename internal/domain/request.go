package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRequest is the caller-supplied shape for booking or amending a
// trade. Reference fields are unresolved Refs; the lifecycle manager
// resolves them after validation.
type TradeRequest struct {
	TradeID       *int64 // generated when absent on create
	TradeDate     time.Time
	StartDate     time.Time
	MaturityDate  time.Time
	ExecutionDate time.Time
	UTICode       string
	Status        string // defaults to NEW on create
	Book          Ref
	Counterparty  Ref
	TraderUser    Ref
	InputterUser  Ref
	TradeType     string
	TradeSubType  string
	Legs          []LegRequest
}

// LegRequest is the caller-supplied shape for one leg of a trade
type LegRequest struct {
	Notional     decimal.Decimal
	Rate         *float64
	MaturityDate *time.Time // must match across both legs when supplied
	Currency     Ref
	RateType     Ref
	Index        Ref
	Schedule     Ref
	PaymentBDC   Ref
	FixingBDC    Ref
	Calendar     Ref
	PayReceive   Ref
}
