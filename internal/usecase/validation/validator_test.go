package validation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/swapdesk/tradebook-backend/internal/domain"
)

// MockReferenceDataRepository is a mock implementation of ReferenceDataRepository for testing
type MockReferenceDataRepository struct {
	mock.Mock
}

func (m *MockReferenceDataRepository) FindBook(ctx context.Context, ref domain.Ref) (*domain.Book, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *MockReferenceDataRepository) FindCounterparty(ctx context.Context, ref domain.Ref) (*domain.Counterparty, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Counterparty), args.Error(1)
}

func (m *MockReferenceDataRepository) FindCurrency(ctx context.Context, ref domain.Ref) (*domain.Currency, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Currency), args.Error(1)
}

func (m *MockReferenceDataRepository) FindLegRateType(ctx context.Context, ref domain.Ref) (domain.LegRateType, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(domain.LegRateType), args.Error(1)
}

func (m *MockReferenceDataRepository) FindIndex(ctx context.Context, ref domain.Ref) (*domain.RateIndex, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateIndex), args.Error(1)
}

func (m *MockReferenceDataRepository) FindSchedule(ctx context.Context, ref domain.Ref) (*domain.Schedule, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schedule), args.Error(1)
}

func (m *MockReferenceDataRepository) FindBusinessDayConvention(ctx context.Context, ref domain.Ref) (*domain.BusinessDayConvention, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BusinessDayConvention), args.Error(1)
}

func (m *MockReferenceDataRepository) FindHolidayCalendar(ctx context.Context, ref domain.Ref) (*domain.HolidayCalendar, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HolidayCalendar), args.Error(1)
}

func (m *MockReferenceDataRepository) FindPayRec(ctx context.Context, ref domain.Ref) (*domain.PayRec, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayRec), args.Error(1)
}

func (m *MockReferenceDataRepository) FindUser(ctx context.Context, ref domain.Ref) (*domain.ApplicationUser, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplicationUser), args.Error(1)
}

// MockTradeRepository is a mock implementation of TradeRepository for testing
type MockTradeRepository struct {
	mock.Mock
}

func (m *MockTradeRepository) NextTradeID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTradeRepository) GetActive(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	args := m.Called(ctx, tradeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trade), args.Error(1)
}

func (m *MockTradeRepository) ListVersions(ctx context.Context, tradeID int64) ([]*domain.Trade, error) {
	args := m.Called(ctx, tradeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Trade), args.Error(1)
}

func (m *MockTradeRepository) SaveVersion(ctx context.Context, trade *domain.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *MockTradeRepository) Supersede(ctx context.Context, expectedVersion int, deactivatedAt time.Time, next *domain.Trade) error {
	args := m.Called(ctx, expectedVersion, deactivatedAt, next)
	return args.Error(0)
}

func (m *MockTradeRepository) UpdateStatus(ctx context.Context, trade *domain.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *MockTradeRepository) List(ctx context.Context, filter domain.TradeFilter) ([]*domain.Trade, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Trade), args.Error(1)
}

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestValidator(refData domain.ReferenceDataRepository, trades domain.TradeRepository) *Validator {
	v := NewValidator(refData, trades)
	v.now = func() time.Time { return testNow }
	return v
}

func fixedLeg(rate float64, direction string) domain.LegRequest {
	return domain.LegRequest{
		Notional:   decimal.NewFromInt(10_000_000),
		Rate:       &rate,
		Currency:   domain.RefByName("USD"),
		RateType:   domain.RefByName("Fixed"),
		Schedule:   domain.RefByName("3M"),
		PayReceive: domain.RefByName(direction),
	}
}

func floatingLeg(index, direction string) domain.LegRequest {
	leg := domain.LegRequest{
		Notional:   decimal.NewFromInt(10_000_000),
		Currency:   domain.RefByName("USD"),
		RateType:   domain.RefByName("Floating"),
		Schedule:   domain.RefByName("3M"),
		PayReceive: domain.RefByName(direction),
	}
	if index != "" {
		leg.Index = domain.RefByName(index)
	}
	return leg
}

func validCreateRequest() *domain.TradeRequest {
	return &domain.TradeRequest{
		TradeDate:    testNow.AddDate(0, 0, -1),
		StartDate:    testNow.AddDate(0, 0, 1),
		MaturityDate: testNow.AddDate(1, 0, 0),
		Book:         domain.RefByName("RATES-NY"),
		Counterparty: domain.RefByName("JPMorgan"),
		Legs: []domain.LegRequest{
			fixedLeg(3.5, "Pay"),
			floatingLeg("SOFR", "Receive"),
		},
	}
}

func TestValidateForCreate_ValidRequest(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateForCreate(context.Background(), validCreateRequest())

	assert.True(t, result.Valid())
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateForCreate_AccumulatesIndependentErrors(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateForCreate(context.Background(), &domain.TradeRequest{})

	assert.False(t, result.Valid())
	assert.Contains(t, result.Errors, "Trade date is required")
	assert.Contains(t, result.Errors, "Book is required")
	assert.Contains(t, result.Errors, "Counterparty is required")
	assert.Contains(t, result.Errors, "Trade must have exactly 2 legs")
	assert.Len(t, result.Errors, 4)
}

func TestValidateForCreate_TradeDateTooOld(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	req := validCreateRequest()
	req.TradeDate = testNow.AddDate(0, 0, -31)
	req.StartDate = testNow
	result := v.ValidateForCreate(context.Background(), req)

	assert.Contains(t, result.Errors, "Trade date is more than 30 days in the past")
}

func TestValidateForCreate_TradeDateExactlyThirtyDaysOld(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	// Trade dates arrive as calendar dates (midnight UTC) while the clock
	// carries a time of day. The age check compares dates, so day 30 passes
	// no matter the hour.
	req := validCreateRequest()
	req.TradeDate = dateOnly(testNow).AddDate(0, 0, -30)
	req.StartDate = testNow
	result := v.ValidateForCreate(context.Background(), req)

	assert.NotContains(t, result.Errors, "Trade date is more than 30 days in the past")
}

func TestValidateForCreate_DateOrdering(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	req := validCreateRequest()
	req.StartDate = req.TradeDate.AddDate(0, 0, -5)
	req.MaturityDate = req.StartDate.AddDate(0, 0, -5)
	result := v.ValidateForCreate(context.Background(), req)

	assert.Contains(t, result.Errors, "Start date cannot be before trade date")
	assert.Contains(t, result.Errors, "Maturity date cannot be before start date")
}

func TestValidateForCreate_InactiveBookByID(t *testing.T) {
	ctx := context.Background()
	mockRefData := new(MockReferenceDataRepository)
	v := newTestValidator(mockRefData, new(MockTradeRepository))

	req := validCreateRequest()
	req.Book = domain.RefByID(1002)
	mockRefData.On("FindBook", ctx, req.Book).
		Return(&domain.Book{ID: 1002, Name: "LEGACY", Active: false}, nil)

	result := v.ValidateForCreate(ctx, req)

	assert.Contains(t, result.Errors, "Book not found or inactive")
	mockRefData.AssertExpectations(t)
}

func TestValidateForCreate_UnknownCounterpartyByID(t *testing.T) {
	ctx := context.Background()
	mockRefData := new(MockReferenceDataRepository)
	v := newTestValidator(mockRefData, new(MockTradeRepository))

	req := validCreateRequest()
	req.Counterparty = domain.RefByID(9999)
	mockRefData.On("FindCounterparty", ctx, req.Counterparty).Return(nil, nil)

	result := v.ValidateForCreate(ctx, req)

	assert.Contains(t, result.Errors, "Counterparty not found or inactive")
}

func TestValidateForCreate_DuplicateTradeID(t *testing.T) {
	ctx := context.Background()
	mockTrades := new(MockTradeRepository)
	v := newTestValidator(new(MockReferenceDataRepository), mockTrades)

	req := validCreateRequest()
	tradeID := int64(10001)
	req.TradeID = &tradeID
	mockTrades.On("ListVersions", ctx, tradeID).
		Return([]*domain.Trade{{TradeID: tradeID, Version: 1}}, nil)

	result := v.ValidateForCreate(ctx, req)

	assert.Contains(t, result.Errors, "Trade ID already exists")
}

func TestValidateLegConsistency_WrongLegCount(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateLegConsistency(context.Background(), []domain.LegRequest{fixedLeg(3.5, "Pay")})

	assert.Equal(t, []string{"Trade must have exactly 2 legs"}, result.Errors)
}

func TestValidateLegConsistency_ThreeLegsStillSingleError(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	legs := []domain.LegRequest{fixedLeg(3.5, "Pay"), floatingLeg("", "Pay"), fixedLeg(0, "Pay")}
	result := v.ValidateLegConsistency(context.Background(), legs)

	assert.Equal(t, []string{"Trade must have exactly 2 legs"}, result.Errors)
}

func TestValidateLegConsistency_MaturityMismatch(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	mat1 := testNow.AddDate(1, 0, 0)
	mat2 := testNow.AddDate(2, 0, 0)
	leg1 := fixedLeg(3.5, "Pay")
	leg1.MaturityDate = &mat1
	leg2 := floatingLeg("SOFR", "Receive")
	leg2.MaturityDate = &mat2

	result := v.ValidateLegConsistency(context.Background(), []domain.LegRequest{leg1, leg2})

	assert.Contains(t, result.Errors, "Leg maturity dates must be identical")
}

func TestValidateLegConsistency_SameDirectionCaseInsensitive(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateLegConsistency(context.Background(), []domain.LegRequest{
		fixedLeg(3.5, "pay"),
		floatingLeg("SOFR", "PAY"),
	})

	assert.Contains(t, result.Errors, "Legs must have opposite pay/receive flags")
}

func TestValidateLegConsistency_FloatingLegNeedsIndex(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateLegConsistency(context.Background(), []domain.LegRequest{
		fixedLeg(3.5, "Pay"),
		floatingLeg("", "Receive"),
	})

	assert.Contains(t, result.Errors, "Leg 2: Floating leg must have an index")
}

func TestValidateLegConsistency_FixedLegNeedsPositiveRate(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	noRate := fixedLeg(0, "Pay")
	noRate.Rate = nil
	zeroRate := fixedLeg(0, "Receive")

	result := v.ValidateLegConsistency(context.Background(), []domain.LegRequest{noRate, zeroRate})

	assert.Contains(t, result.Errors, "Leg 1: Fixed leg must have a positive rate")
	assert.Contains(t, result.Errors, "Leg 2: Fixed leg must have a positive rate")
}

func TestValidateForAmend_TradeNotFound(t *testing.T) {
	ctx := context.Background()
	mockTrades := new(MockTradeRepository)
	v := newTestValidator(new(MockReferenceDataRepository), mockTrades)

	mockTrades.On("GetActive", ctx, int64(10001)).Return(nil, nil)

	result := v.ValidateForAmend(ctx, 10001, validCreateRequest())

	assert.Equal(t, []string{"Trade not found"}, result.Errors)
}

func TestValidateForAmend_TerminalStatusGatesEverything(t *testing.T) {
	ctx := context.Background()
	mockTrades := new(MockTradeRepository)
	v := newTestValidator(new(MockReferenceDataRepository), mockTrades)

	mockTrades.On("GetActive", ctx, int64(10001)).
		Return(&domain.Trade{TradeID: 10001, Version: 2, Status: domain.TradeStatusTerminated}, nil)

	// An otherwise broken request must still get only the gating error.
	result := v.ValidateForAmend(ctx, 10001, &domain.TradeRequest{})

	assert.Equal(t, []string{"Trade status does not allow amendments"}, result.Errors)
}

func TestValidateForAmend_LegFieldRules(t *testing.T) {
	ctx := context.Background()
	mockTrades := new(MockTradeRepository)
	v := newTestValidator(new(MockReferenceDataRepository), mockTrades)

	mockTrades.On("GetActive", ctx, int64(10001)).
		Return(&domain.Trade{TradeID: 10001, Version: 1, Status: domain.TradeStatusNew}, nil)

	req := validCreateRequest()
	req.Legs[0].Notional = decimal.Zero
	req.Legs[0].Currency = domain.Ref{}
	result := v.ValidateForAmend(ctx, 10001, req)

	assert.Contains(t, result.Errors, "Leg 1: Notional must be greater than zero")
	assert.Contains(t, result.Errors, "Leg 1: Currency is required")
}

func TestValidateForAmend_LargeNotionalWarnsButPasses(t *testing.T) {
	ctx := context.Background()
	mockTrades := new(MockTradeRepository)
	v := newTestValidator(new(MockReferenceDataRepository), mockTrades)

	mockTrades.On("GetActive", ctx, int64(10001)).
		Return(&domain.Trade{TradeID: 10001, Version: 1, Status: domain.TradeStatusAmended}, nil)

	req := validCreateRequest()
	req.Legs[0].Notional = decimal.NewFromInt(250_000_000)
	req.Legs[1].Notional = decimal.NewFromInt(250_000_000)
	result := v.ValidateForAmend(ctx, 10001, req)

	assert.True(t, result.Valid())
	assert.Contains(t, result.Warnings, "Leg 1: Large notional detected")
	assert.Contains(t, result.Warnings, "Leg 2: Large notional detected")
}

func TestValidateForRead_StaleTradeDateWarns(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateForRead(&domain.TradeRequest{TradeDate: testNow.AddDate(0, 0, -4)})

	assert.True(t, result.Valid())
	assert.Contains(t, result.Warnings, "Trade date is more than 3 days old")
}

func TestValidateForRead_FreshTradeDateClean(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateForRead(&domain.TradeRequest{TradeDate: testNow.AddDate(0, 0, -1)})

	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateForRead_ExactlyThreeDaysOldIsClean(t *testing.T) {
	v := newTestValidator(new(MockReferenceDataRepository), new(MockTradeRepository))

	result := v.ValidateForRead(&domain.TradeRequest{TradeDate: dateOnly(testNow).AddDate(0, 0, -3)})

	assert.Empty(t, result.Warnings, "staleness is a calendar-date boundary")
}
