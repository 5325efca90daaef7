package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/swapdesk/tradebook-backend/internal/domain"
	"github.com/swapdesk/tradebook-backend/internal/usecase/cashflow"
	"github.com/swapdesk/tradebook-backend/internal/usecase/validation"
)

// Service orchestrates the trade lifecycle: booking, amendment,
// termination and cancellation. It enforces the single-active-version
// invariant; amendments and terminal transitions against the same trade
// id are serialized in-process and guarded by an optimistic check at the
// gateway covering both the version and the status.
type Service struct {
	trades    domain.TradeRepository
	refData   domain.ReferenceDataRepository
	validator *validation.Validator
	log       *logrus.Logger
	now       func() time.Time

	mu         sync.Mutex
	tradeLocks map[int64]*tradeLock
}

// tradeLock serializes lifecycle writes for one trade id. refs counts
// holders and waiters so the map entry can be dropped once idle.
type tradeLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a lifecycle Service
func NewService(
	trades domain.TradeRepository,
	refData domain.ReferenceDataRepository,
	validator *validation.Validator,
	log *logrus.Logger,
) *Service {
	return &Service{
		trades:     trades,
		refData:    refData,
		validator:  validator,
		log:        log,
		now:        time.Now,
		tradeLocks: make(map[int64]*tradeLock),
	}
}

// Create books a new trade: validate, resolve references, then persist
// the version with its legs and generated cashflows as one atomic write.
// The trade id is allocated from the gateway sequence when the request
// does not carry one.
func (s *Service) Create(ctx context.Context, req *domain.TradeRequest) (*domain.Trade, error) {
	result := s.validator.ValidateForCreate(ctx, req)
	if !result.Valid() {
		s.log.WithField("errors", result.Errors).Warn("trade booking rejected by validation")
		return nil, &domain.ValidationError{Result: result}
	}

	tradeID, err := s.resolveTradeID(ctx, req)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = string(domain.TradeStatusNew)
	}

	trade, err := s.buildVersion(ctx, req, tradeID, 1, status)
	if err != nil {
		return nil, err
	}

	if err := s.trades.SaveVersion(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to persist trade: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"tradeId":   trade.TradeID,
		"version":   trade.Version,
		"status":    trade.Status,
		"cashflows": countCashflows(trade),
	}).Info("trade created")
	return trade, nil
}

// Amend supersedes the active version: the old row is deactivated and a
// new row with version+1 and status AMENDED becomes active, with legs and
// cashflows regenerated. Cashflow batches from prior versions are left
// untouched. A concurrent amendment of the same trade loses the
// optimistic version check and surfaces ConcurrencyConflictError.
func (s *Service) Amend(ctx context.Context, tradeID int64, req *domain.TradeRequest) (*domain.Trade, error) {
	lock := s.lockTrade(tradeID)
	defer s.unlockTrade(tradeID, lock)

	existing, err := s.trades.GetActive(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if existing == nil {
		return nil, &domain.NotFoundError{TradeID: tradeID}
	}

	result := s.validator.ValidateForAmend(ctx, tradeID, req)
	if !result.Valid() {
		s.log.WithFields(logrus.Fields{
			"tradeId": tradeID,
			"errors":  result.Errors,
		}).Warn("trade amendment rejected by validation")
		return nil, &domain.ValidationError{Result: result}
	}

	next, err := s.buildVersion(ctx, req, tradeID, existing.Version+1, string(domain.TradeStatusAmended))
	if err != nil {
		return nil, err
	}

	if err := s.trades.Supersede(ctx, existing.Version, s.now(), next); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"tradeId": tradeID,
		"version": next.Version,
	}).Info("trade amended")
	return next, nil
}

// Terminate moves the active version to TERMINATED in place. No new
// version is created and no cashflows are regenerated.
func (s *Service) Terminate(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	return s.transition(ctx, tradeID, domain.TradeStatusTerminated)
}

// Cancel moves the active version to CANCELLED in place
func (s *Service) Cancel(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	return s.transition(ctx, tradeID, domain.TradeStatusCancelled)
}

// Delete is an alias for Cancel
func (s *Service) Delete(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	return s.Cancel(ctx, tradeID)
}

// Get retrieves the active version with legs and cashflows loaded
func (s *Service) Get(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	trade, err := s.trades.GetActive(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if trade == nil {
		return nil, &domain.NotFoundError{TradeID: tradeID}
	}
	return trade, nil
}

// List retrieves trades matching the filter for blotter views
func (s *Service) List(ctx context.Context, filter domain.TradeFilter) ([]*domain.Trade, error) {
	return s.trades.List(ctx, filter)
}

// TradeSummary aggregates the active book for dashboard views
type TradeSummary struct {
	TradesByStatus       map[string]int
	TradesByCounterparty map[string]int
	NotionalByCurrency   map[string]decimal.Decimal
}

// Summary aggregates counts and notionals across all active versions
func (s *Service) Summary(ctx context.Context) (*TradeSummary, error) {
	trades, err := s.trades.List(ctx, domain.TradeFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for summary: %w", err)
	}

	summary := &TradeSummary{
		TradesByStatus:       make(map[string]int),
		TradesByCounterparty: make(map[string]int),
		NotionalByCurrency:   make(map[string]decimal.Decimal),
	}
	for _, trade := range trades {
		summary.TradesByStatus[string(trade.Status)]++
		if trade.Counterparty != nil {
			summary.TradesByCounterparty[trade.Counterparty.Name]++
		}
		for _, leg := range trade.Legs {
			if leg.Currency == nil {
				continue
			}
			total := summary.NotionalByCurrency[leg.Currency.Code]
			summary.NotionalByCurrency[leg.Currency.Code] = total.Add(leg.Notional)
		}
	}
	return summary, nil
}

func (s *Service) transition(ctx context.Context, tradeID int64, target domain.TradeStatus) (*domain.Trade, error) {
	lock := s.lockTrade(tradeID)
	defer s.unlockTrade(tradeID, lock)

	trade, err := s.trades.GetActive(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	if trade == nil {
		return nil, &domain.NotFoundError{TradeID: tradeID}
	}
	if trade.IsTerminal() {
		var result domain.ValidationResult
		result.AddError(fmt.Sprintf("Trade status does not allow transition to %s", target))
		return nil, &domain.ValidationError{Result: result}
	}

	trade.Status = target
	trade.LastTouched = s.now()
	if err := s.trades.UpdateStatus(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to update trade %d status: %w", tradeID, err)
	}

	s.log.WithFields(logrus.Fields{
		"tradeId": tradeID,
		"status":  target,
	}).Info("trade status updated")
	return trade, nil
}

func (s *Service) resolveTradeID(ctx context.Context, req *domain.TradeRequest) (int64, error) {
	if req.TradeID != nil {
		return *req.TradeID, nil
	}
	tradeID, err := s.trades.NextTradeID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate trade id: %w", err)
	}
	return tradeID, nil
}

// buildVersion resolves every reference on the request and assembles a
// fully-populated trade version, including generated cashflows for each
// leg when both start and maturity dates are known. Missing mandatory
// references (book, counterparty, status) are fatal.
func (s *Service) buildVersion(ctx context.Context, req *domain.TradeRequest, tradeID int64, version int, statusLabel string) (*domain.Trade, error) {
	status, err := domain.ParseTradeStatus(statusLabel)
	if err != nil {
		return nil, err
	}

	book, err := s.refData.FindBook(ctx, req.Book)
	if err != nil {
		return nil, fmt.Errorf("book lookup failed: %w", err)
	}
	if book == nil {
		return nil, &domain.ReferenceDataError{Entity: "book", Ref: req.Book}
	}

	cpty, err := s.refData.FindCounterparty(ctx, req.Counterparty)
	if err != nil {
		return nil, fmt.Errorf("counterparty lookup failed: %w", err)
	}
	if cpty == nil {
		return nil, &domain.ReferenceDataError{Entity: "counterparty", Ref: req.Counterparty}
	}

	trader, err := s.optionalUser(ctx, req.TraderUser)
	if err != nil {
		return nil, err
	}
	inputter, err := s.optionalUser(ctx, req.InputterUser)
	if err != nil {
		return nil, err
	}

	uti := req.UTICode
	if uti == "" {
		uti = domain.NewUTICode()
	}

	now := s.now()
	trade := &domain.Trade{
		ID:            uuid.New(),
		TradeID:       tradeID,
		Version:       version,
		Active:        true,
		Status:        status,
		TradeDate:     req.TradeDate,
		StartDate:     req.StartDate,
		MaturityDate:  req.MaturityDate,
		ExecutionDate: req.ExecutionDate,
		UTICode:       uti,
		Book:          book,
		Counterparty:  cpty,
		TraderUser:    trader,
		InputterUser:  inputter,
		TradeType:     req.TradeType,
		TradeSubType:  req.TradeSubType,
		CreatedAt:     now,
		LastTouched:   now,
	}

	for _, legReq := range req.Legs {
		leg, err := s.buildLeg(ctx, trade, legReq, now)
		if err != nil {
			return nil, err
		}
		trade.Legs = append(trade.Legs, *leg)
	}

	return trade, nil
}

func (s *Service) buildLeg(ctx context.Context, trade *domain.Trade, req domain.LegRequest, now time.Time) (*domain.TradeLeg, error) {
	leg := &domain.TradeLeg{
		ID:             uuid.New(),
		TradeVersionID: trade.ID,
		Notional:       req.Notional,
		Active:         true,
		CreatedAt:      now,
	}
	if req.Rate != nil {
		leg.Rate = *req.Rate
	}

	var err error
	if leg.Currency, err = s.refData.FindCurrency(ctx, req.Currency); err != nil {
		return nil, fmt.Errorf("currency lookup failed: %w", err)
	}
	if leg.RateType, err = s.refData.FindLegRateType(ctx, req.RateType); err != nil {
		return nil, fmt.Errorf("leg type lookup failed: %w", err)
	}
	if leg.Index, err = s.refData.FindIndex(ctx, req.Index); err != nil {
		return nil, fmt.Errorf("index lookup failed: %w", err)
	}
	if leg.Schedule, err = s.refData.FindSchedule(ctx, req.Schedule); err != nil {
		return nil, fmt.Errorf("schedule lookup failed: %w", err)
	}
	if leg.PaymentBDC, err = s.refData.FindBusinessDayConvention(ctx, req.PaymentBDC); err != nil {
		return nil, fmt.Errorf("payment convention lookup failed: %w", err)
	}
	if leg.FixingBDC, err = s.refData.FindBusinessDayConvention(ctx, req.FixingBDC); err != nil {
		return nil, fmt.Errorf("fixing convention lookup failed: %w", err)
	}
	if leg.Calendar, err = s.refData.FindHolidayCalendar(ctx, req.Calendar); err != nil {
		return nil, fmt.Errorf("holiday calendar lookup failed: %w", err)
	}
	if leg.PayReceive, err = s.refData.FindPayRec(ctx, req.PayReceive); err != nil {
		return nil, fmt.Errorf("pay/receive lookup failed: %w", err)
	}

	if !trade.StartDate.IsZero() && !trade.MaturityDate.IsZero() {
		flows, err := cashflow.Generate(leg, trade.StartDate, trade.MaturityDate, now)
		if err != nil {
			return nil, err
		}
		leg.Cashflows = flows
	}

	return leg, nil
}

func (s *Service) optionalUser(ctx context.Context, ref domain.Ref) (*domain.ApplicationUser, error) {
	if ref.IsZero() {
		return nil, nil
	}
	user, err := s.refData.FindUser(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return user, nil
}

// lockTrade acquires the per-trade lifecycle lock, creating it on first
// use. Pair with unlockTrade, which drops the map entry once no holder
// or waiter remains, keeping the lock table bounded by in-flight work.
func (s *Service) lockTrade(tradeID int64) *tradeLock {
	s.mu.Lock()
	lock, ok := s.tradeLocks[tradeID]
	if !ok {
		lock = &tradeLock{}
		s.tradeLocks[tradeID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *Service) unlockTrade(tradeID int64, lock *tradeLock) {
	lock.mu.Unlock()
	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.tradeLocks, tradeID)
	}
	s.mu.Unlock()
}

func countCashflows(trade *domain.Trade) int {
	n := 0
	for _, leg := range trade.Legs {
		n += len(leg.Cashflows)
	}
	return n
}
