// Package memory provides an in-memory persistence gateway used by local
// runs and the end-to-end tests. It honors the same atomicity contract as
// the postgres gateway: SaveVersion and Supersede happen under one lock.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/swapdesk/tradebook-backend/internal/domain"
)

const tradeIDBase = 10000

// Store implements domain.TradeRepository and
// domain.ReferenceDataRepository over process memory.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	versions map[int64][]*domain.Trade

	books      []domain.Book
	cptys      []domain.Counterparty
	currencies []domain.Currency
	indices    []domain.RateIndex
	schedules  []domain.Schedule
	bdcs       []domain.BusinessDayConvention
	calendars  []domain.HolidayCalendar
	payRecs    []domain.PayRec
	users      []domain.ApplicationUser
}

// NewStore creates a Store seeded with the standard reference data set
func NewStore() *Store {
	return &Store{
		nextID:   tradeIDBase,
		versions: make(map[int64][]*domain.Trade),
		books: []domain.Book{
			{ID: 1000, Name: "RATES-NY", Active: true},
			{ID: 1001, Name: "RATES-LDN", Active: true},
			{ID: 1002, Name: "LEGACY", Active: false},
		},
		cptys: []domain.Counterparty{
			{ID: 2000, Name: "JPMorgan", Active: true},
			{ID: 2001, Name: "Barclays", Active: true},
			{ID: 2002, Name: "Northwind Partners", Active: false},
		},
		currencies: []domain.Currency{
			{ID: 1, Code: "USD"},
			{ID: 2, Code: "EUR"},
			{ID: 3, Code: "GBP"},
			{ID: 4, Code: "JPY"},
		},
		indices: []domain.RateIndex{
			{ID: 1, Name: "SOFR"},
			{ID: 2, Name: "EURIBOR"},
			{ID: 3, Name: "SONIA"},
			{ID: 4, Name: "LIBOR"},
		},
		schedules: []domain.Schedule{
			{ID: 1, Label: "Monthly"},
			{ID: 2, Label: "Quarterly"},
			{ID: 3, Label: "Semi-annually"},
			{ID: 4, Label: "Annually"},
			{ID: 5, Label: "1M"},
			{ID: 6, Label: "3M"},
			{ID: 7, Label: "6M"},
			{ID: 8, Label: "12M"},
		},
		bdcs: []domain.BusinessDayConvention{
			{ID: 1, Name: "Following"},
			{ID: 2, Name: "Modified Following"},
			{ID: 3, Name: "Preceding"},
		},
		calendars: []domain.HolidayCalendar{
			{ID: 1, Name: "NY"},
			{ID: 2, Name: "LON"},
			{ID: 3, Name: "TARGET"},
		},
		payRecs: []domain.PayRec{
			{ID: 1000, Direction: "Pay"},
			{ID: 1001, Direction: "Receive"},
		},
		users: []domain.ApplicationUser{
			{ID: 3000, LoginID: "tjones", FirstName: "Tom", LastName: "Jones", Profile: domain.ProfileTrader, Active: true},
			{ID: 3001, LoginID: "ssmith", FirstName: "Sara", LastName: "Smith", Profile: domain.ProfileSales, Active: true},
			{ID: 3002, LoginID: "mokafor", FirstName: "Mike", LastName: "Okafor", Profile: domain.ProfileMiddleOffice, Active: true},
			{ID: 3003, LoginID: "bliu", FirstName: "Bea", LastName: "Liu", Profile: domain.ProfileSupport, Active: true},
		},
	}
}

// NextTradeID allocates the next business key from the in-process sequence
func (s *Store) NextTradeID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id, nil
}

// GetActive retrieves the active version for a trade id, or (nil, nil)
func (s *Store) GetActive(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.versions[tradeID] {
		if t.Active {
			return cloneTrade(t), nil
		}
	}
	return nil, nil
}

// ListVersions retrieves every version for a trade id in version order
func (s *Store) ListVersions(ctx context.Context, tradeID int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Trade, 0, len(s.versions[tradeID]))
	for _, t := range s.versions[tradeID] {
		out = append(out, cloneTrade(t))
	}
	return out, nil
}

// SaveVersion inserts a new trade version aggregate
func (s *Store) SaveVersion(ctx context.Context, trade *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[trade.TradeID] = append(s.versions[trade.TradeID], cloneTrade(trade))
	return nil
}

// Supersede deactivates the active version after an optimistic check and
// inserts the next version under the same lock. The check covers both the
// version and the status: a version that went terminal since the caller
// read it cannot be superseded, so TERMINATED and CANCELLED stay final.
func (s *Store) Supersede(ctx context.Context, expectedVersion int, deactivatedAt time.Time, next *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *domain.Trade
	for _, t := range s.versions[next.TradeID] {
		if t.Active {
			current = t
			break
		}
	}
	if current == nil || current.Version != expectedVersion || current.IsTerminal() {
		return &domain.ConcurrencyConflictError{TradeID: next.TradeID, ExpectedVersion: expectedVersion}
	}

	current.Active = false
	ts := deactivatedAt
	current.DeactivatedAt = &ts
	s.versions[next.TradeID] = append(s.versions[next.TradeID], cloneTrade(next))
	return nil
}

// UpdateStatus applies an in-place status change to a stored version row
func (s *Store) UpdateStatus(ctx context.Context, trade *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.versions[trade.TradeID] {
		if t.ID == trade.ID {
			t.Status = trade.Status
			t.LastTouched = trade.LastTouched
			return nil
		}
	}
	return &domain.NotFoundError{TradeID: trade.TradeID}
}

// List retrieves trades matching the filter
func (s *Store) List(ctx context.Context, filter domain.TradeFilter) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Trade
	for _, versions := range s.versions {
		for _, t := range versions {
			if matches(t, filter) {
				out = append(out, cloneTrade(t))
			}
		}
	}
	return out, nil
}

func matches(t *domain.Trade, f domain.TradeFilter) bool {
	if f.ActiveOnly && !t.Active {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Counterparty != "" && (t.Counterparty == nil || !strings.EqualFold(t.Counterparty.Name, f.Counterparty)) {
		return false
	}
	if f.Book != "" && (t.Book == nil || !strings.EqualFold(t.Book.Name, f.Book)) {
		return false
	}
	if f.Trader != "" && (t.TraderUser == nil || !strings.EqualFold(t.TraderUser.LoginID, f.Trader)) {
		return false
	}
	if f.FromDate != nil && t.TradeDate.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && t.TradeDate.After(*f.ToDate) {
		return false
	}
	return true
}

func cloneTrade(t *domain.Trade) *domain.Trade {
	c := *t
	if t.DeactivatedAt != nil {
		ts := *t.DeactivatedAt
		c.DeactivatedAt = &ts
	}
	c.Legs = make([]domain.TradeLeg, len(t.Legs))
	for i, leg := range t.Legs {
		c.Legs[i] = leg
		c.Legs[i].Cashflows = append([]domain.Cashflow(nil), leg.Cashflows...)
	}
	return &c
}
