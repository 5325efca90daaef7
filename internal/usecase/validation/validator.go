package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swapdesk/tradebook-backend/internal/domain"
)

const (
	// maxTradeDateAgeDays is how far in the past a booking trade date may lie
	maxTradeDateAgeDays = 30
	// staleTradeDateAgeDays triggers the advisory warning on read validation
	staleTradeDateAgeDays = 3
)

// largeNotionalThreshold raises a warning, never an error
var largeNotionalThreshold = decimal.NewFromInt(100_000_000)

// Validator evaluates business rules over trade requests. All checks run
// and accumulate onto a ValidationResult; nothing is persisted or
// mutated, so a Validator is safe for concurrent use.
type Validator struct {
	refData domain.ReferenceDataRepository
	trades  domain.TradeRepository
	now     func() time.Time
}

// NewValidator creates a Validator backed by the given gateways
func NewValidator(refData domain.ReferenceDataRepository, trades domain.TradeRepository) *Validator {
	return &Validator{
		refData: refData,
		trades:  trades,
		now:     time.Now,
	}
}

// SetClock overrides the validator's time source
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// ValidateForCreate evaluates every booking rule against the request and
// returns the accumulated result. It never short-circuits between
// independent checks.
func (v *Validator) ValidateForCreate(ctx context.Context, req *domain.TradeRequest) domain.ValidationResult {
	var result domain.ValidationResult

	v.validateDates(req, &result)
	v.validateRequiredReferences(ctx, req, &result)
	v.validateDuplicateTradeID(ctx, req, &result)
	v.validateLegs(ctx, req, &result)

	return result
}

// ValidateForAmend gates on the existing trade's status before evaluating
// field-level rules. A trade in a terminal status yields a single gating
// error and nothing else.
func (v *Validator) ValidateForAmend(ctx context.Context, tradeID int64, req *domain.TradeRequest) domain.ValidationResult {
	var result domain.ValidationResult

	existing, err := v.trades.GetActive(ctx, tradeID)
	if err != nil {
		result.AddError(fmt.Sprintf("trade lookup failed: %v", err))
		return result
	}
	if existing == nil {
		result.AddError("Trade not found")
		return result
	}
	if !existing.CanAmend() {
		result.AddError("Trade status does not allow amendments")
		return result
	}

	v.validateDates(req, &result)
	v.validateRequiredReferences(ctx, req, &result)
	v.validateLegs(ctx, req, &result)
	v.validateAmendmentLegs(ctx, req.Legs, &result)

	return result
}

// ValidateForRead is the advisory read-only check: it never fails, but
// warns when the trade date has gone stale.
func (v *Validator) ValidateForRead(req *domain.TradeRequest) domain.ValidationResult {
	var result domain.ValidationResult
	if !req.TradeDate.IsZero() && dateOnly(req.TradeDate).Before(dateOnly(v.now()).AddDate(0, 0, -staleTradeDateAgeDays)) {
		result.AddWarning("Trade date is more than 3 days old")
	}
	return result
}

// dateOnly normalizes to a calendar date in UTC so age checks do not
// depend on the time of day the validator runs.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (v *Validator) validateDates(req *domain.TradeRequest, result *domain.ValidationResult) {
	if req.TradeDate.IsZero() {
		result.AddError("Trade date is required")
	} else if dateOnly(req.TradeDate).Before(dateOnly(v.now()).AddDate(0, 0, -maxTradeDateAgeDays)) {
		result.AddError("Trade date is more than 30 days in the past")
	}

	if !req.StartDate.IsZero() && !req.TradeDate.IsZero() && req.StartDate.Before(req.TradeDate) {
		result.AddError("Start date cannot be before trade date")
	}
	if !req.MaturityDate.IsZero() && !req.StartDate.IsZero() && req.MaturityDate.Before(req.StartDate) {
		result.AddError("Maturity date cannot be before start date")
	}
}

func (v *Validator) validateRequiredReferences(ctx context.Context, req *domain.TradeRequest, result *domain.ValidationResult) {
	if req.Book.IsZero() {
		result.AddError("Book is required")
	} else if _, byID := req.Book.ID(); byID {
		book, err := v.refData.FindBook(ctx, req.Book)
		if err != nil {
			result.AddError(fmt.Sprintf("book lookup failed: %v", err))
		} else if book == nil || !book.Active {
			result.AddError("Book not found or inactive")
		}
	}

	if req.Counterparty.IsZero() {
		result.AddError("Counterparty is required")
	} else if _, byID := req.Counterparty.ID(); byID {
		cpty, err := v.refData.FindCounterparty(ctx, req.Counterparty)
		if err != nil {
			result.AddError(fmt.Sprintf("counterparty lookup failed: %v", err))
		} else if cpty == nil || !cpty.Active {
			result.AddError("Counterparty not found or inactive")
		}
	}
}

func (v *Validator) validateDuplicateTradeID(ctx context.Context, req *domain.TradeRequest, result *domain.ValidationResult) {
	if req.TradeID == nil {
		return
	}
	versions, err := v.trades.ListVersions(ctx, *req.TradeID)
	if err != nil {
		result.AddError(fmt.Sprintf("trade lookup failed: %v", err))
		return
	}
	if len(versions) > 0 {
		result.AddError("Trade ID already exists")
	}
}

func (v *Validator) validateLegs(ctx context.Context, req *domain.TradeRequest, result *domain.ValidationResult) {
	if len(req.Legs) == 0 {
		result.AddError("Trade must have exactly 2 legs")
		return
	}
	consistency := v.ValidateLegConsistency(ctx, req.Legs)
	result.Merge(&consistency)
}

// ValidateLegConsistency evaluates the cross-leg rules. A leg count other
// than 2 is itself the error and suppresses the remaining checks.
func (v *Validator) ValidateLegConsistency(ctx context.Context, legs []domain.LegRequest) domain.ValidationResult {
	var result domain.ValidationResult

	if len(legs) != 2 {
		result.AddError("Trade must have exactly 2 legs")
		return result
	}

	if !legMaturitiesMatch(legs[0], legs[1]) {
		result.AddError("Leg maturity dates must be identical")
	}

	dir0, ok0 := v.legDirection(ctx, legs[0])
	dir1, ok1 := v.legDirection(ctx, legs[1])
	if ok0 && ok1 && strings.EqualFold(dir0, dir1) {
		result.AddError("Legs must have opposite pay/receive flags")
	}

	for i, leg := range legs {
		prefix := fmt.Sprintf("Leg %d: ", i+1)

		rateType, known := v.legRateType(ctx, leg)
		switch {
		case known && rateType == domain.LegRateTypeFloating:
			if leg.Index.IsZero() {
				result.AddError(prefix + "Floating leg must have an index")
			}
		case known && rateType == domain.LegRateTypeFixed:
			if leg.Rate == nil || *leg.Rate <= 0 {
				result.AddError(prefix + "Fixed leg must have a positive rate")
			}
		}
	}

	return result
}

// validateAmendmentLegs carries the leg field rules the amendment
// validator adds on top of the shared consistency checks.
func (v *Validator) validateAmendmentLegs(ctx context.Context, legs []domain.LegRequest, result *domain.ValidationResult) {
	for i, leg := range legs {
		prefix := fmt.Sprintf("Leg %d: ", i+1)

		if leg.Notional.LessThanOrEqual(decimal.Zero) {
			result.AddError(prefix + "Notional must be greater than zero")
		}
		if leg.Currency.IsZero() {
			result.AddError(prefix + "Currency is required")
		}
		if leg.PayReceive.IsZero() {
			result.AddError(prefix + "Pay/Receive is required")
		}
		if leg.Notional.GreaterThan(largeNotionalThreshold) {
			result.AddWarning(prefix + "Large notional detected")
		}
	}
}

// legDirection resolves a leg's pay/receive direction for the
// opposite-flags check. Unresolvable directions are skipped here;
// presence is enforced by the amendment leg rules.
func (v *Validator) legDirection(ctx context.Context, leg domain.LegRequest) (string, bool) {
	if name, byName := leg.PayReceive.Name(); byName {
		return name, true
	}
	if _, byID := leg.PayReceive.ID(); byID {
		payRec, err := v.refData.FindPayRec(ctx, leg.PayReceive)
		if err == nil && payRec != nil {
			return payRec.Direction, true
		}
	}
	return "", false
}

func (v *Validator) legRateType(ctx context.Context, leg domain.LegRequest) (domain.LegRateType, bool) {
	if name, byName := leg.RateType.Name(); byName {
		switch strings.ToLower(name) {
		case "fixed":
			return domain.LegRateTypeFixed, true
		case "floating":
			return domain.LegRateTypeFloating, true
		}
		return "", false
	}
	if _, byID := leg.RateType.ID(); byID {
		rateType, err := v.refData.FindLegRateType(ctx, leg.RateType)
		if err == nil && rateType != "" {
			return rateType, true
		}
	}
	return "", false
}

func legMaturitiesMatch(a, b domain.LegRequest) bool {
	if a.MaturityDate == nil && b.MaturityDate == nil {
		return true
	}
	if a.MaturityDate == nil || b.MaturityDate == nil {
		return false
	}
	return a.MaturityDate.Equal(*b.MaturityDate)
}
