package rest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swapdesk/tradebook-backend/internal/domain"
)

const dateLayout = "2006-01-02"

// refDTO accepts either a JSON string (resolve by name) or a JSON number
// (resolve by id).
type refDTO struct {
	ref domain.Ref
}

func (r *refDTO) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name != "" {
			r.ref = domain.RefByName(name)
		}
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		r.ref = domain.RefByID(id)
		return nil
	}
	return fmt.Errorf("reference must be a string name or numeric id, got %s", string(data))
}

// dateDTO accepts a "YYYY-MM-DD" JSON string; empty or null means unset.
type dateDTO struct {
	t time.Time
}

func (d *dateDTO) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a %q string: %w", dateLayout, err)
	}
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected %s", s, dateLayout)
	}
	d.t = t
	return nil
}

type tradeRequestDTO struct {
	TradeID       *int64        `json:"tradeId"`
	TradeDate     dateDTO       `json:"tradeDate"`
	StartDate     dateDTO       `json:"startDate"`
	MaturityDate  dateDTO       `json:"maturityDate"`
	ExecutionDate *time.Time    `json:"executionDate"`
	UTICode       string        `json:"utiCode"`
	Status        string        `json:"status"`
	Book          refDTO        `json:"book"`
	Counterparty  refDTO        `json:"counterparty"`
	TraderUser    refDTO        `json:"traderUser"`
	InputterUser  refDTO        `json:"inputterUser"`
	TradeType     string        `json:"tradeType"`
	TradeSubType  string        `json:"tradeSubType"`
	Legs          []legRequestDTO `json:"legs"`
}

type legRequestDTO struct {
	Notional     decimal.Decimal `json:"notional"`
	Rate         *float64        `json:"rate"`
	MaturityDate *dateDTO        `json:"maturityDate"`
	Currency     refDTO          `json:"currency"`
	RateType     refDTO          `json:"legType"`
	Index        refDTO          `json:"index"`
	Schedule     refDTO          `json:"calculationPeriodSchedule"`
	PaymentBDC   refDTO          `json:"paymentBusinessDayConvention"`
	FixingBDC    refDTO          `json:"fixingBusinessDayConvention"`
	Calendar     refDTO          `json:"holidayCalendar"`
	PayReceive   refDTO          `json:"payReceiveFlag"`
}

func (dto *tradeRequestDTO) toDomain() *domain.TradeRequest {
	req := &domain.TradeRequest{
		TradeID:      dto.TradeID,
		TradeDate:    dto.TradeDate.t,
		StartDate:    dto.StartDate.t,
		MaturityDate: dto.MaturityDate.t,
		UTICode:      dto.UTICode,
		Status:       dto.Status,
		Book:         dto.Book.ref,
		Counterparty: dto.Counterparty.ref,
		TraderUser:   dto.TraderUser.ref,
		InputterUser: dto.InputterUser.ref,
		TradeType:    dto.TradeType,
		TradeSubType: dto.TradeSubType,
	}
	if dto.ExecutionDate != nil {
		req.ExecutionDate = *dto.ExecutionDate
	}
	for _, leg := range dto.Legs {
		req.Legs = append(req.Legs, leg.toDomain())
	}
	return req
}

func (dto *legRequestDTO) toDomain() domain.LegRequest {
	leg := domain.LegRequest{
		Notional:   dto.Notional,
		Rate:       dto.Rate,
		Currency:   dto.Currency.ref,
		RateType:   dto.RateType.ref,
		Index:      dto.Index.ref,
		Schedule:   dto.Schedule.ref,
		PaymentBDC: dto.PaymentBDC.ref,
		FixingBDC:  dto.FixingBDC.ref,
		Calendar:   dto.Calendar.ref,
		PayReceive: dto.PayReceive.ref,
	}
	if dto.MaturityDate != nil && !dto.MaturityDate.t.IsZero() {
		t := dto.MaturityDate.t
		leg.MaturityDate = &t
	}
	return leg
}

type tradeResponse struct {
	ID            string         `json:"id"`
	TradeID       int64          `json:"tradeId"`
	Version       int            `json:"version"`
	Active        bool           `json:"active"`
	Status        string         `json:"status"`
	TradeDate     string         `json:"tradeDate,omitempty"`
	StartDate     string         `json:"startDate,omitempty"`
	MaturityDate  string         `json:"maturityDate,omitempty"`
	ExecutionDate *time.Time     `json:"executionDate,omitempty"`
	UTICode       string         `json:"utiCode"`
	Book          string         `json:"book,omitempty"`
	Counterparty  string         `json:"counterparty,omitempty"`
	TraderUser    string         `json:"traderUser,omitempty"`
	InputterUser  string         `json:"inputterUser,omitempty"`
	TradeType     string         `json:"tradeType,omitempty"`
	TradeSubType  string         `json:"tradeSubType,omitempty"`
	Legs          []legResponse  `json:"legs"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastTouched   time.Time      `json:"lastTouched"`
	DeactivatedAt *time.Time     `json:"deactivatedAt,omitempty"`
}

type legResponse struct {
	ID         string             `json:"id"`
	Notional   decimal.Decimal    `json:"notional"`
	Rate       float64            `json:"rate"`
	RateType   string             `json:"legType,omitempty"`
	Currency   string             `json:"currency,omitempty"`
	Index      string             `json:"index,omitempty"`
	Schedule   string             `json:"calculationPeriodSchedule,omitempty"`
	PayReceive string             `json:"payReceiveFlag,omitempty"`
	Active     bool               `json:"active"`
	Cashflows  []cashflowResponse `json:"cashflows"`
}

type cashflowResponse struct {
	ID           string          `json:"id"`
	ValueDate    string          `json:"valueDate"`
	PaymentValue decimal.Decimal `json:"paymentValue"`
	Rate         float64         `json:"rate"`
	PayReceive   string          `json:"payReceiveFlag,omitempty"`
	Active       bool            `json:"active"`
}

type validationResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func toTradeResponse(trade *domain.Trade) tradeResponse {
	resp := tradeResponse{
		ID:            trade.ID.String(),
		TradeID:       trade.TradeID,
		Version:       trade.Version,
		Active:        trade.Active,
		Status:        string(trade.Status),
		TradeDate:     formatDate(trade.TradeDate),
		StartDate:     formatDate(trade.StartDate),
		MaturityDate:  formatDate(trade.MaturityDate),
		UTICode:       trade.UTICode,
		TradeType:     trade.TradeType,
		TradeSubType:  trade.TradeSubType,
		CreatedAt:     trade.CreatedAt,
		LastTouched:   trade.LastTouched,
		DeactivatedAt: trade.DeactivatedAt,
	}
	if !trade.ExecutionDate.IsZero() {
		t := trade.ExecutionDate
		resp.ExecutionDate = &t
	}
	if trade.Book != nil {
		resp.Book = trade.Book.Name
	}
	if trade.Counterparty != nil {
		resp.Counterparty = trade.Counterparty.Name
	}
	if trade.TraderUser != nil {
		resp.TraderUser = trade.TraderUser.LoginID
	}
	if trade.InputterUser != nil {
		resp.InputterUser = trade.InputterUser.LoginID
	}
	for i := range trade.Legs {
		resp.Legs = append(resp.Legs, toLegResponse(&trade.Legs[i]))
	}
	return resp
}

func toLegResponse(leg *domain.TradeLeg) legResponse {
	resp := legResponse{
		ID:       leg.ID.String(),
		Notional: leg.Notional,
		Rate:     leg.Rate,
		RateType: string(leg.RateType),
		Active:   leg.Active,
	}
	if leg.Currency != nil {
		resp.Currency = leg.Currency.Code
	}
	if leg.Index != nil {
		resp.Index = leg.Index.Name
	}
	if leg.Schedule != nil {
		resp.Schedule = leg.Schedule.Label
	}
	if leg.PayReceive != nil {
		resp.PayReceive = leg.PayReceive.Direction
	}
	for _, cf := range leg.Cashflows {
		resp.Cashflows = append(resp.Cashflows, toCashflowResponse(cf))
	}
	return resp
}

func toCashflowResponse(cf domain.Cashflow) cashflowResponse {
	resp := cashflowResponse{
		ID:           cf.ID.String(),
		ValueDate:    formatDate(cf.ValueDate),
		PaymentValue: cf.PaymentValue,
		Rate:         cf.Rate,
		Active:       cf.Active,
	}
	if cf.PayReceive != nil {
		resp.PayReceive = cf.PayReceive.Direction
	}
	return resp
}

func toValidationResponse(result domain.ValidationResult) validationResponse {
	resp := validationResponse{
		Valid:    result.Valid(),
		Errors:   result.Errors,
		Warnings: result.Warnings,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	return resp
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
