package cashflow

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/swapdesk/tradebook-backend/internal/domain"
)

// defaultIntervalMonths is used when a leg carries no schedule reference
const defaultIntervalMonths = 3

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
)

// Generate derives the ordered cashflow batch for a leg between the trade
// start and maturity dates. It is a pure computation: nothing is
// persisted and the leg is not mutated.
//
// Payment dates step forward from the start date by the schedule interval
// and stop once a step passes maturity. A schedule whose first step
// already exceeds maturity yields an empty batch; that is expected for
// e.g. an annual schedule over a window shorter than one year.
func Generate(leg *domain.TradeLeg, startDate, maturityDate time.Time, now time.Time) ([]domain.Cashflow, error) {
	interval, err := ParseScheduleMonths(leg.ScheduleLabel())
	if err != nil {
		return nil, err
	}

	dates := paymentDates(startDate, maturityDate, interval)

	flows := make([]domain.Cashflow, 0, len(dates))
	for _, valueDate := range dates {
		flows = append(flows, domain.Cashflow{
			ID:           uuid.New(),
			LegID:        leg.ID,
			ValueDate:    valueDate,
			PaymentValue: paymentValue(leg, interval),
			Rate:         leg.Rate,
			PayReceive:   leg.PayReceive,
			PaymentBDC:   leg.PaymentBDC,
			Active:       true,
			CreatedAt:    now,
		})
	}
	return flows, nil
}

// ParseScheduleMonths resolves a schedule label to an interval in months.
// An empty label defaults to quarterly.
func ParseScheduleMonths(label string) (int, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return defaultIntervalMonths, nil
	}

	switch strings.ToLower(label) {
	case "monthly":
		return 1, nil
	case "quarterly":
		return 3, nil
	case "semi-annually", "semiannually", "half-yearly":
		return 6, nil
	case "annually", "yearly":
		return 12, nil
	}

	// "<N>M" token, e.g. "3M"
	if strings.HasSuffix(label, "M") || strings.HasSuffix(label, "m") {
		n, err := strconv.Atoi(label[:len(label)-1])
		if err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, &domain.ScheduleFormatError{Label: label}
}

// paymentDates emits start+interval, start+2*interval, ... while the
// stepped date does not exceed maturity. Stepping is iterative, so a
// month-end clamp carries into subsequent periods.
func paymentDates(startDate, maturityDate time.Time, intervalMonths int) []time.Time {
	var dates []time.Time
	d := addMonths(startDate, intervalMonths)
	for !d.After(maturityDate) {
		dates = append(dates, d)
		d = addMonths(d, intervalMonths)
	}
	return dates
}

// addMonths adds calendar months clamping to the last day of the target
// month, avoiding Go's date normalization (Jan 31 + 1 month is Feb 28,
// not Mar 3).
func addMonths(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	d := t.AddDate(0, months, 0)
	if d.Month() == firstOfTarget.Month() {
		return d
	}
	return firstOfTarget.AddDate(0, 1, -1)
}

// paymentValue computes one period's payment amount.
//
// Fixed legs accrue notional * (rate / 100) * (intervalMonths / 12),
// rounded half-up to 2 decimal places. The rate is a percentage and the
// accrual is a year fraction; dropping either conversion inflates the
// value by 100x or 12x. Floating legs are never estimated and value to
// zero, as does any unknown rate type.
func paymentValue(leg *domain.TradeLeg, intervalMonths int) decimal.Decimal {
	if leg.RateType != domain.LegRateTypeFixed {
		return decimal.Zero
	}
	rate := decimal.NewFromFloat(leg.Rate).Div(hundred)
	yearFraction := decimal.NewFromInt(int64(intervalMonths)).Div(monthsInYear)
	return leg.Notional.Mul(rate).Mul(yearFraction).Round(2)
}
