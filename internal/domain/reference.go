package domain

import (
	"context"
	"fmt"
)

// Ref identifies a reference record either by its human-entered name or by
// its numeric identifier. A zero Ref identifies nothing.
type Ref struct {
	name string
	id   *int64
}

// RefByName builds a Ref that resolves by name
func RefByName(name string) Ref {
	return Ref{name: name}
}

// RefByID builds a Ref that resolves by numeric identifier
func RefByID(id int64) Ref {
	return Ref{id: &id}
}

// Name returns the name and whether this Ref resolves by name
func (r Ref) Name() (string, bool) {
	return r.name, r.name != ""
}

// ID returns the identifier and whether this Ref resolves by id
func (r Ref) ID() (int64, bool) {
	if r.id == nil {
		return 0, false
	}
	return *r.id, true
}

// IsZero reports whether the Ref identifies nothing
func (r Ref) IsZero() bool {
	return r.name == "" && r.id == nil
}

func (r Ref) String() string {
	if r.name != "" {
		return r.name
	}
	if r.id != nil {
		return fmt.Sprintf("#%d", *r.id)
	}
	return "<none>"
}

// Book is a trading book reference record
type Book struct {
	ID     int64
	Name   string
	Active bool
}

// Counterparty is the other party to a trade
type Counterparty struct {
	ID     int64
	Name   string
	Active bool
}

// Currency is a settlement currency reference record
type Currency struct {
	ID   int64
	Code string
}

// RateIndex is a floating-rate index (e.g. SOFR, EURIBOR)
type RateIndex struct {
	ID   int64
	Name string
}

// Schedule is a cashflow frequency label (e.g. Quarterly, "3M")
type Schedule struct {
	ID    int64
	Label string
}

// BusinessDayConvention is a date-adjustment rule reference record.
// The core carries it on legs and cashflows but never applies it.
type BusinessDayConvention struct {
	ID   int64
	Name string
}

// HolidayCalendar is a holiday calendar reference record
type HolidayCalendar struct {
	ID   int64
	Name string
}

// PayRec flags whether a leg's cashflows are paid or received
type PayRec struct {
	ID        int64
	Direction string // "Pay" or "Receive"
}

// UserProfile is the role attached to an application user
type UserProfile string

const (
	ProfileTrader       UserProfile = "TRADER"
	ProfileSales        UserProfile = "SALES"
	ProfileMiddleOffice UserProfile = "MIDDLE_OFFICE"
	ProfileSupport      UserProfile = "SUPPORT"
)

// ApplicationUser is a booking-system user reference record
type ApplicationUser struct {
	ID        int64
	LoginID   string
	FirstName string
	LastName  string
	Profile   UserProfile
	Active    bool
}

// ReferenceDataRepository resolves human-entered names or numeric
// identifiers to canonical reference records. Lookups return (nil, nil)
// when no record matches; errors are reserved for gateway failures.
type ReferenceDataRepository interface {
	FindBook(ctx context.Context, ref Ref) (*Book, error)
	FindCounterparty(ctx context.Context, ref Ref) (*Counterparty, error)
	FindCurrency(ctx context.Context, ref Ref) (*Currency, error)
	FindLegRateType(ctx context.Context, ref Ref) (LegRateType, error)
	FindIndex(ctx context.Context, ref Ref) (*RateIndex, error)
	FindSchedule(ctx context.Context, ref Ref) (*Schedule, error)
	FindBusinessDayConvention(ctx context.Context, ref Ref) (*BusinessDayConvention, error)
	FindHolidayCalendar(ctx context.Context, ref Ref) (*HolidayCalendar, error)
	FindPayRec(ctx context.Context, ref Ref) (*PayRec, error)
	FindUser(ctx context.Context, ref Ref) (*ApplicationUser, error)
}
