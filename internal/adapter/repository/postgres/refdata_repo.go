package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/swapdesk/tradebook-backend/internal/domain"
)

// refDataRepository implements domain.ReferenceDataRepository over the
// reference tables. Every lookup supports name-or-id resolution; a zero
// Ref or an unmatched value yields (nil, nil).
type refDataRepository struct {
	db *DB
}

// NewRefDataRepository creates a new reference data repository
func NewRefDataRepository(db *DB) domain.ReferenceDataRepository {
	return &refDataRepository{db: db}
}

// FindBook resolves a book reference
func (r *refDataRepository) FindBook(ctx context.Context, ref domain.Ref) (*domain.Book, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, name, active FROM books WHERE lower(name) = lower($1)`,
		`SELECT id, name, active FROM books WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var book domain.Book
	if err := row.Scan(&book.ID, &book.Name, &book.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up book: %w", err)
	}
	return &book, nil
}

// FindCounterparty resolves a counterparty reference
func (r *refDataRepository) FindCounterparty(ctx context.Context, ref domain.Ref) (*domain.Counterparty, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, name, active FROM counterparties WHERE lower(name) = lower($1)`,
		`SELECT id, name, active FROM counterparties WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var cpty domain.Counterparty
	if err := row.Scan(&cpty.ID, &cpty.Name, &cpty.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up counterparty: %w", err)
	}
	return &cpty, nil
}

// FindCurrency resolves a currency reference
func (r *refDataRepository) FindCurrency(ctx context.Context, ref domain.Ref) (*domain.Currency, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, code FROM currencies WHERE lower(code) = lower($1)`,
		`SELECT id, code FROM currencies WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var ccy domain.Currency
	if err := row.Scan(&ccy.ID, &ccy.Code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up currency: %w", err)
	}
	return &ccy, nil
}

// FindLegRateType resolves a leg rate-type reference. The two known
// types carry fixed identifiers: 1 for Fixed, 2 for Floating.
func (r *refDataRepository) FindLegRateType(ctx context.Context, ref domain.Ref) (domain.LegRateType, error) {
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
func (r *refDataRepository) FindIndex(ctx context.Context, ref domain.Ref) (*domain.RateIndex, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, name FROM rate_indices WHERE lower(name) = lower($1)`,
		`SELECT id, name FROM rate_indices WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var idx domain.RateIndex
	if err := row.Scan(&idx.ID, &idx.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up index: %w", err)
	}
	return &idx, nil
}

// FindSchedule resolves a schedule reference
func (r *refDataRepository) FindSchedule(ctx context.Context, ref domain.Ref) (*domain.Schedule, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, label FROM schedules WHERE lower(label) = lower($1)`,
		`SELECT id, label FROM schedules WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var sched domain.Schedule
	if err := row.Scan(&sched.ID, &sched.Label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up schedule: %w", err)
	}
	return &sched, nil
}

// FindBusinessDayConvention resolves a business-day-convention reference
func (r *refDataRepository) FindBusinessDayConvention(ctx context.Context, ref domain.Ref) (*domain.BusinessDayConvention, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, name FROM business_day_conventions WHERE lower(name) = lower($1)`,
		`SELECT id, name FROM business_day_conventions WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var bdc domain.BusinessDayConvention
	if err := row.Scan(&bdc.ID, &bdc.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up business day convention: %w", err)
	}
	return &bdc, nil
}

// FindHolidayCalendar resolves a holiday-calendar reference
func (r *refDataRepository) FindHolidayCalendar(ctx context.Context, ref domain.Ref) (*domain.HolidayCalendar, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, name FROM holiday_calendars WHERE lower(name) = lower($1)`,
		`SELECT id, name FROM holiday_calendars WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var cal domain.HolidayCalendar
	if err := row.Scan(&cal.ID, &cal.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up holiday calendar: %w", err)
	}
	return &cal, nil
}

// FindPayRec resolves a pay/receive flag reference
func (r *refDataRepository) FindPayRec(ctx context.Context, ref domain.Ref) (*domain.PayRec, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, direction FROM pay_recs WHERE lower(direction) = lower($1)`,
		`SELECT id, direction FROM pay_recs WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var pr domain.PayRec
	if err := row.Scan(&pr.ID, &pr.Direction); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up pay/receive: %w", err)
	}
	return &pr, nil
}

// FindUser resolves an application user by login id or first name
func (r *refDataRepository) FindUser(ctx context.Context, ref domain.Ref) (*domain.ApplicationUser, error) {
	row, ok := r.lookup(ctx, ref,
		`SELECT id, login_id, first_name, last_name, profile, active
		 FROM application_users
		 WHERE lower(login_id) = lower($1) OR lower(first_name) = lower($1)`,
		`SELECT id, login_id, first_name, last_name, profile, active
		 FROM application_users
		 WHERE id = $1`)
	if !ok {
		return nil, nil
	}
	var user domain.ApplicationUser
	var profile string
	if err := row.Scan(&user.ID, &user.LoginID, &user.FirstName, &user.LastName, &profile, &user.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	user.Profile = domain.UserProfile(profile)
	return &user, nil
}

// lookup picks the by-name or by-id query for the Ref. The second return
// is false for a zero Ref.
func (r *refDataRepository) lookup(ctx context.Context, ref domain.Ref, byName, byID string) (*sql.Row, bool) {
	if name, ok := ref.Name(); ok {
		return r.db.QueryRowContext(ctx, byName, name), true
	}
	if id, ok := ref.ID(); ok {
		return r.db.QueryRowContext(ctx, byID, id), true
	}
	return nil, false
}
