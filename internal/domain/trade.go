package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TradeStatus represents the lifecycle status of a trade version
type TradeStatus string

const (
	TradeStatusNew        TradeStatus = "NEW"
	TradeStatusAmended    TradeStatus = "AMENDED"
	TradeStatusTerminated TradeStatus = "TERMINATED"
	TradeStatusCancelled  TradeStatus = "CANCELLED"
)

// ParseTradeStatus resolves a status label to a TradeStatus.
// Unknown labels are a reference-data failure, not a validation failure.
func ParseTradeStatus(label string) (TradeStatus, error) {
	switch TradeStatus(strings.ToUpper(strings.TrimSpace(label))) {
	case TradeStatusNew:
		return TradeStatusNew, nil
	case TradeStatusAmended:
		return TradeStatusAmended, nil
	case TradeStatusTerminated:
		return TradeStatusTerminated, nil
	case TradeStatusCancelled:
		return TradeStatusCancelled, nil
	default:
		return "", &ReferenceDataError{Entity: "trade status", Ref: RefByName(label)}
	}
}

// Trade represents one immutable version of a trade.
// The business key TradeID is shared across versions; exactly one version
// per TradeID is active at any time.
type Trade struct {
	ID            uuid.UUID // storage key, unique per version
	TradeID       int64
	Version       int
	Active        bool
	Status        TradeStatus
	TradeDate     time.Time
	StartDate     time.Time
	MaturityDate  time.Time
	ExecutionDate time.Time
	UTICode       string
	Book          *Book
	Counterparty  *Counterparty
	TraderUser    *ApplicationUser
	InputterUser  *ApplicationUser
	TradeType     string
	TradeSubType  string
	Legs          []TradeLeg
	CreatedAt     time.Time
	LastTouched   time.Time
	DeactivatedAt *time.Time
}

// Validate ensures the trade adheres to domain rules
func (t *Trade) Validate() error {
	if !t.StartDate.IsZero() && !t.TradeDate.IsZero() && t.StartDate.Before(t.TradeDate) {
		return errors.New("start date cannot be before trade date")
	}
	if !t.MaturityDate.IsZero() && !t.StartDate.IsZero() && t.MaturityDate.Before(t.StartDate) {
		return errors.New("maturity date cannot be before start date")
	}
	if len(t.Legs) != 2 {
		return errors.New("trade must have exactly 2 legs")
	}
	return nil
}

// CanAmend reports whether the trade's status permits an amendment.
// TERMINATED and CANCELLED are terminal: no outgoing transitions.
func (t *Trade) CanAmend() bool {
	return t.Status == TradeStatusNew || t.Status == TradeStatusAmended
}

// IsTerminal reports whether the trade has reached a terminal status
func (t *Trade) IsTerminal() bool {
	return t.Status == TradeStatusTerminated || t.Status == TradeStatusCancelled
}

// NewUTICode generates a unique transaction identifier code for a trade
// that was booked without one.
func NewUTICode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "UTI" + raw[:20]
}
