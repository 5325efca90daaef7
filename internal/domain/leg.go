package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LegRateType distinguishes fixed-rate from floating-rate legs
type LegRateType string

const (
	LegRateTypeFixed    LegRateType = "Fixed"
	LegRateTypeFloating LegRateType = "Floating"
)

// TradeLeg represents one side of a two-sided trade. Legs belong to exactly
// one trade version; an amendment re-creates them for the new version.
type TradeLeg struct {
	ID             uuid.UUID
	TradeVersionID uuid.UUID // storage key of the owning trade version
	Notional       decimal.Decimal
	Rate           float64 // percentage, e.g. 3.5 means 3.5%
	Currency       *Currency
	RateType       LegRateType
	Index          *RateIndex // required iff RateType is Floating
	Schedule       *Schedule
	PaymentBDC     *BusinessDayConvention
	FixingBDC      *BusinessDayConvention
	Calendar       *HolidayCalendar
	PayReceive     *PayRec
	Cashflows      []Cashflow
	Active         bool
	CreatedAt      time.Time
}

// Validate ensures the leg adheres to domain rules
func (l *TradeLeg) Validate() error {
	if l.Notional.LessThanOrEqual(decimal.Zero) {
		return errors.New("leg notional must be greater than zero")
	}
	if l.RateType == LegRateTypeFloating && l.Index == nil {
		return errors.New("floating leg must have an index")
	}
	if l.RateType == LegRateTypeFixed && l.Rate <= 0 {
		return errors.New("fixed leg must have a positive rate")
	}
	return nil
}

// ScheduleLabel returns the leg's calculation-period schedule label,
// or the empty string when no schedule reference is set.
func (l *TradeLeg) ScheduleLabel() string {
	if l.Schedule == nil {
		return ""
	}
	return l.Schedule.Label
}
