package memory

import (
	"context"
	"strings"

	"github.com/swapdesk/tradebook-backend/internal/domain"
)

// Reference lookups resolve a Ref against the seeded records. A zero Ref
// or an unmatched name/id yields (nil, nil); the in-memory gateway has no
// failure modes.

// FindBook resolves a book reference
func (s *Store) FindBook(ctx context.Context, ref domain.Ref) (*domain.Book, error) {
	for i := range s.books {
		if refMatches(ref, s.books[i].ID, s.books[i].Name) {
			return &s.books[i], nil
		}
	}
	return nil, nil
}

// FindCounterparty resolves a counterparty reference
func (s *Store) FindCounterparty(ctx context.Context, ref domain.Ref) (*domain.Counterparty, error) {
	for i := range s.cptys {
		if refMatches(ref, s.cptys[i].ID, s.cptys[i].Name) {
			return &s.cptys[i], nil
		}
	}
	return nil, nil
}

// FindCurrency resolves a currency reference
func (s *Store) FindCurrency(ctx context.Context, ref domain.Ref) (*domain.Currency, error) {
	for i := range s.currencies {
		if refMatches(ref, s.currencies[i].ID, s.currencies[i].Code) {
			return &s.currencies[i], nil
		}
	}
	return nil, nil
}

// FindLegRateType resolves a leg rate-type reference. The two known types
// carry fixed identifiers: 1 for Fixed, 2 for Floating.
func (s *Store) FindLegRateType(ctx context.Context, ref domain.Ref) (domain.LegRateType, error) {
	if name, byName := ref.Name(); byName {
		switch strings.ToLower(name) {
		case "fixed":
			return domain.LegRateTypeFixed, nil
		case "floating":
			return domain.LegRateTypeFloating, nil
		}
		return "", nil
	}
	if id, byID := ref.ID(); byID {
		switch id {
		case 1:
			return domain.LegRateTypeFixed, nil
		case 2:
			return domain.LegRateTypeFloating, nil
		}
	}
	return "", nil
}

// FindIndex resolves a floating-rate index reference
func (s *Store) FindIndex(ctx context.Context, ref domain.Ref) (*domain.RateIndex, error) {
	for i := range s.indices {
		if refMatches(ref, s.indices[i].ID, s.indices[i].Name) {
			return &s.indices[i], nil
		}
	}
	return nil, nil
}

// FindSchedule resolves a schedule reference
func (s *Store) FindSchedule(ctx context.Context, ref domain.Ref) (*domain.Schedule, error) {
	for i := range s.schedules {
		if refMatches(ref, s.schedules[i].ID, s.schedules[i].Label) {
			return &s.schedules[i], nil
		}
	}
	return nil, nil
}

// FindBusinessDayConvention resolves a business-day-convention reference
func (s *Store) FindBusinessDayConvention(ctx context.Context, ref domain.Ref) (*domain.BusinessDayConvention, error) {
	for i := range s.bdcs {
		if refMatches(ref, s.bdcs[i].ID, s.bdcs[i].Name) {
			return &s.bdcs[i], nil
		}
	}
	return nil, nil
}

// FindHolidayCalendar resolves a holiday-calendar reference
func (s *Store) FindHolidayCalendar(ctx context.Context, ref domain.Ref) (*domain.HolidayCalendar, error) {
	for i := range s.calendars {
		if refMatches(ref, s.calendars[i].ID, s.calendars[i].Name) {
			return &s.calendars[i], nil
		}
	}
	return nil, nil
}

// FindPayRec resolves a pay/receive flag reference
func (s *Store) FindPayRec(ctx context.Context, ref domain.Ref) (*domain.PayRec, error) {
	for i := range s.payRecs {
		if refMatches(ref, s.payRecs[i].ID, s.payRecs[i].Direction) {
			return &s.payRecs[i], nil
		}
	}
	return nil, nil
}

// FindUser resolves an application user by login id or first name
func (s *Store) FindUser(ctx context.Context, ref domain.Ref) (*domain.ApplicationUser, error) {
	for i := range s.users {
		u := &s.users[i]
		if refMatches(ref, u.ID, u.LoginID) || refMatches(ref, u.ID, u.FirstName) {
			return u, nil
		}
	}
	return nil, nil
}

func refMatches(ref domain.Ref, id int64, name string) bool {
	if refID, byID := ref.ID(); byID {
		return refID == id
	}
	if refName, byName := ref.Name(); byName {
		return strings.EqualFold(refName, name)
	}
	return false
}
