package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swapdesk/tradebook-backend/internal/domain"
)

// tradeRepository implements domain.TradeRepository.
// Trade rows carry denormalized reference snapshots (id plus display
// name) so versions read back exactly as they were booked even if
// reference data changes later.
type tradeRepository struct {
	db *DB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *DB) domain.TradeRepository {
	return &tradeRepository{db: db}
}

// NextTradeID allocates the next business key from the trade_id sequence.
// The sequence starts at 10000 (see schema.sql).
func (r *tradeRepository) NextTradeID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('trade_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate trade id: %w", err)
	}
	return id, nil
}

const tradeColumns = `
	id, trade_id, version, active, status,
	trade_date, start_date, maturity_date, execution_date, uti_code,
	book_id, book_name, counterparty_id, counterparty_name,
	trader_user_id, trader_login, inputter_user_id, inputter_login,
	trade_type, trade_sub_type, created_at, last_touched, deactivated_at`

// GetActive retrieves the active version for a trade id, with legs and
// cashflows loaded. Returns (nil, nil) when no active version exists.
func (r *tradeRepository) GetActive(ctx context.Context, tradeID int64) (*domain.Trade, error) {
	query := `SELECT` + tradeColumns + `
		FROM trades
		WHERE trade_id = $1 AND active`

	trade, err := r.scanTrade(r.db.QueryRowContext(ctx, query, tradeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active trade: %w", err)
	}

	if err := r.loadLegs(ctx, trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// ListVersions retrieves every version for a trade id in version order
func (r *tradeRepository) ListVersions(ctx context.Context, tradeID int64) ([]*domain.Trade, error) {
	query := `SELECT` + tradeColumns + `
		FROM trades
		WHERE trade_id = $1
		ORDER BY version`

	rows, err := r.db.QueryContext(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trade versions: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		trade, err := r.scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade version: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list trade versions: %w", err)
	}

	for _, trade := range trades {
		if err := r.loadLegs(ctx, trade); err != nil {
			return nil, err
		}
	}
	return trades, nil
}

// SaveVersion inserts a new trade version with its legs and cashflows in
// one database transaction.
func (r *tradeRepository) SaveVersion(ctx context.Context, trade *domain.Trade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertVersion(ctx, tx, trade); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Supersede deactivates the expected active version and inserts the next
// version in the same transaction. The UPDATE carries the version and an
// amendable-status predicate; zero rows affected means either another
// amendment won the race or the version went terminal in the meantime.
func (r *tradeRepository) Supersede(ctx context.Context, expectedVersion int, deactivatedAt time.Time, next *domain.Trade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE trades
		SET active = false, deactivated_at = $1
		WHERE trade_id = $2 AND version = $3 AND active
		  AND status IN ('NEW', 'AMENDED')`,
		deactivatedAt, next.TradeID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate trade version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate trade version: %w", err)
	}
	if affected != 1 {
		return &domain.ConcurrencyConflictError{TradeID: next.TradeID, ExpectedVersion: expectedVersion}
	}

	if err := insertVersion(ctx, tx, next); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateStatus applies an in-place status change to an existing version row
func (r *tradeRepository) UpdateStatus(ctx context.Context, trade *domain.Trade) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE trades
		SET status = $1, last_touched = $2
		WHERE id = $3`,
		string(trade.Status), trade.LastTouched, trade.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update trade status: %w", err)
	}
	if affected != 1 {
		return &domain.NotFoundError{TradeID: trade.TradeID}
	}
	return nil
}

// List retrieves trades matching the filter for blotter views
func (r *tradeRepository) List(ctx context.Context, filter domain.TradeFilter) ([]*domain.Trade, error) {
	var clauses []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActiveOnly {
		clauses = append(clauses, "active")
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(string(filter.Status)))
	}
	if filter.Counterparty != "" {
		clauses = append(clauses, "lower(counterparty_name) = lower("+arg(filter.Counterparty)+")")
	}
	if filter.Book != "" {
		clauses = append(clauses, "lower(book_name) = lower("+arg(filter.Book)+")")
	}
	if filter.Trader != "" {
		clauses = append(clauses, "lower(trader_login) = lower("+arg(filter.Trader)+")")
	}
	if filter.FromDate != nil {
		clauses = append(clauses, "trade_date >= "+arg(*filter.FromDate))
	}
	if filter.ToDate != nil {
		clauses = append(clauses, "trade_date <= "+arg(*filter.ToDate))
	}

	query := `SELECT` + tradeColumns + ` FROM trades`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY trade_date DESC, trade_id, version"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		trade, err := r.scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	for _, trade := range trades {
		if err := r.loadLegs(ctx, trade); err != nil {
			return nil, err
		}
	}
	return trades, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, trade *domain.Trade) error {
	insertTrade := `
		INSERT INTO trades (
			id, trade_id, version, active, status,
			trade_date, start_date, maturity_date, execution_date, uti_code,
			book_id, book_name, counterparty_id, counterparty_name,
			trader_user_id, trader_login, inputter_user_id, inputter_login,
			trade_type, trade_sub_type, created_at, last_touched, deactivated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`

	var traderID, inputterID sql.NullInt64
	var traderLogin, inputterLogin sql.NullString
	if trade.TraderUser != nil {
		traderID = sql.NullInt64{Int64: trade.TraderUser.ID, Valid: true}
		traderLogin = sql.NullString{String: trade.TraderUser.LoginID, Valid: true}
	}
	if trade.InputterUser != nil {
		inputterID = sql.NullInt64{Int64: trade.InputterUser.ID, Valid: true}
		inputterLogin = sql.NullString{String: trade.InputterUser.LoginID, Valid: true}
	}

	_, err := tx.ExecContext(ctx, insertTrade,
		trade.ID, trade.TradeID, trade.Version, trade.Active, string(trade.Status),
		nullDate(trade.TradeDate), nullDate(trade.StartDate), nullDate(trade.MaturityDate), nullDate(trade.ExecutionDate), trade.UTICode,
		trade.Book.ID, trade.Book.Name, trade.Counterparty.ID, trade.Counterparty.Name,
		traderID, traderLogin, inputterID, inputterLogin,
		trade.TradeType, trade.TradeSubType, trade.CreatedAt, trade.LastTouched, trade.DeactivatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	insertLeg := `
		INSERT INTO trade_legs (
			id, trade_version_id, notional, rate, rate_type,
			currency_id, currency_code, index_id, index_name,
			schedule_id, schedule_label, payment_bdc_id, payment_bdc_name,
			fixing_bdc_id, fixing_bdc_name, calendar_id, calendar_name,
			pay_rec_id, pay_rec_direction, active, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`

	insertCashflow := `
		INSERT INTO cashflows (
			id, leg_id, value_date, payment_value, rate,
			pay_rec_id, pay_rec_direction, payment_bdc_id, payment_bdc_name,
			active, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	for i := range trade.Legs {
		leg := &trade.Legs[i]
		curID, curCode := currencySnapshot(leg.Currency)
		idxID, idxName := indexSnapshot(leg.Index)
		schedID, schedLabel := scheduleSnapshot(leg.Schedule)
		payBDCID, payBDCName := bdcSnapshot(leg.PaymentBDC)
		fixBDCID, fixBDCName := bdcSnapshot(leg.FixingBDC)
		calID, calName := calendarSnapshot(leg.Calendar)
		prID, prDir := payRecSnapshot(leg.PayReceive)

		_, err := tx.ExecContext(ctx, insertLeg,
			leg.ID, trade.ID, leg.Notional.String(), leg.Rate, string(leg.RateType),
			curID, curCode, idxID, idxName,
			schedID, schedLabel, payBDCID, payBDCName,
			fixBDCID, fixBDCName, calID, calName,
			prID, prDir, leg.Active, leg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade leg: %w", err)
		}

		for _, cf := range leg.Cashflows {
			cfPrID, cfPrDir := payRecSnapshot(cf.PayReceive)
			cfBDCID, cfBDCName := bdcSnapshot(cf.PaymentBDC)
			_, err := tx.ExecContext(ctx, insertCashflow,
				cf.ID, leg.ID, cf.ValueDate, cf.PaymentValue.String(), cf.Rate,
				cfPrID, cfPrDir, cfBDCID, cfBDCName,
				cf.Active, cf.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert cashflow: %w", err)
			}
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *tradeRepository) scanTrade(row rowScanner) (*domain.Trade, error) {
	var t domain.Trade
	var status string
	var tradeDate, startDate, maturityDate, executionDate sql.NullTime
	var bookID, cptyID sql.NullInt64
	var bookName, cptyName sql.NullString
	var traderID, inputterID sql.NullInt64
	var traderLogin, inputterLogin sql.NullString
	var deactivatedAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.TradeID, &t.Version, &t.Active, &status,
		&tradeDate, &startDate, &maturityDate, &executionDate, &t.UTICode,
		&bookID, &bookName, &cptyID, &cptyName,
		&traderID, &traderLogin, &inputterID, &inputterLogin,
		&t.TradeType, &t.TradeSubType, &t.CreatedAt, &t.LastTouched, &deactivatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TradeStatus(status)
	t.TradeDate = tradeDate.Time
	t.StartDate = startDate.Time
	t.MaturityDate = maturityDate.Time
	t.ExecutionDate = executionDate.Time
	if bookID.Valid {
		t.Book = &domain.Book{ID: bookID.Int64, Name: bookName.String, Active: true}
	}
	if cptyID.Valid {
		t.Counterparty = &domain.Counterparty{ID: cptyID.Int64, Name: cptyName.String, Active: true}
	}
	if traderID.Valid {
		t.TraderUser = &domain.ApplicationUser{ID: traderID.Int64, LoginID: traderLogin.String}
	}
	if inputterID.Valid {
		t.InputterUser = &domain.ApplicationUser{ID: inputterID.Int64, LoginID: inputterLogin.String}
	}
	if deactivatedAt.Valid {
		ts := deactivatedAt.Time
		t.DeactivatedAt = &ts
	}
	return &t, nil
}

func (r *tradeRepository) loadLegs(ctx context.Context, trade *domain.Trade) error {
	query := `
		SELECT id, notional, rate, rate_type,
			currency_id, currency_code, index_id, index_name,
			schedule_id, schedule_label, payment_bdc_id, payment_bdc_name,
			fixing_bdc_id, fixing_bdc_name, calendar_id, calendar_name,
			pay_rec_id, pay_rec_direction, active, created_at
		FROM trade_legs
		WHERE trade_version_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, trade.ID)
	if err != nil {
		return fmt.Errorf("failed to load trade legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg domain.TradeLeg
		var notionalStr, rateType string
		var curID, idxID, schedID, payBDCID, fixBDCID, calID, prID sql.NullInt64
		var curCode, idxName, schedLabel, payBDCName, fixBDCName, calName, prDir sql.NullString

		err := rows.Scan(
			&leg.ID, &notionalStr, &leg.Rate, &rateType,
			&curID, &curCode, &idxID, &idxName,
			&schedID, &schedLabel, &payBDCID, &payBDCName,
			&fixBDCID, &fixBDCName, &calID, &calName,
			&prID, &prDir, &leg.Active, &leg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan trade leg: %w", err)
		}

		leg.TradeVersionID = trade.ID
		leg.RateType = domain.LegRateType(rateType)
		leg.Notional, err = decimal.NewFromString(notionalStr)
		if err != nil {
			return fmt.Errorf("failed to parse leg notional: %w", err)
		}
		if curID.Valid {
			leg.Currency = &domain.Currency{ID: curID.Int64, Code: curCode.String}
		}
		if idxID.Valid {
			leg.Index = &domain.RateIndex{ID: idxID.Int64, Name: idxName.String}
		}
		if schedID.Valid {
			leg.Schedule = &domain.Schedule{ID: schedID.Int64, Label: schedLabel.String}
		}
		if payBDCID.Valid {
			leg.PaymentBDC = &domain.BusinessDayConvention{ID: payBDCID.Int64, Name: payBDCName.String}
		}
		if fixBDCID.Valid {
			leg.FixingBDC = &domain.BusinessDayConvention{ID: fixBDCID.Int64, Name: fixBDCName.String}
		}
		if calID.Valid {
			leg.Calendar = &domain.HolidayCalendar{ID: calID.Int64, Name: calName.String}
		}
		if prID.Valid {
			leg.PayReceive = &domain.PayRec{ID: prID.Int64, Direction: prDir.String}
		}

		trade.Legs = append(trade.Legs, leg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load trade legs: %w", err)
	}

	for i := range trade.Legs {
		if err := r.loadCashflows(ctx, &trade.Legs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *tradeRepository) loadCashflows(ctx context.Context, leg *domain.TradeLeg) error {
	query := `
		SELECT id, value_date, payment_value, rate,
			pay_rec_id, pay_rec_direction, payment_bdc_id, payment_bdc_name,
			active, created_at
		FROM cashflows
		WHERE leg_id = $1
		ORDER BY value_date`

	rows, err := r.db.QueryContext(ctx, query, leg.ID)
	if err != nil {
		return fmt.Errorf("failed to load cashflows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cf domain.Cashflow
		var valueStr string
		var prID, bdcID sql.NullInt64
		var prDir, bdcName sql.NullString

		err := rows.Scan(
			&cf.ID, &cf.ValueDate, &valueStr, &cf.Rate,
			&prID, &prDir, &bdcID, &bdcName,
			&cf.Active, &cf.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan cashflow: %w", err)
		}

		cf.LegID = leg.ID
		cf.PaymentValue, err = decimal.NewFromString(valueStr)
		if err != nil {
			return fmt.Errorf("failed to parse cashflow payment value: %w", err)
		}
		if prID.Valid {
			cf.PayReceive = &domain.PayRec{ID: prID.Int64, Direction: prDir.String}
		}
		if bdcID.Valid {
			cf.PaymentBDC = &domain.BusinessDayConvention{ID: bdcID.Int64, Name: bdcName.String}
		}

		leg.Cashflows = append(leg.Cashflows, cf)
	}
	return rows.Err()
}

func nullDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func currencySnapshot(c *domain.Currency) (sql.NullInt64, sql.NullString) {
	if c == nil {
		return sql.NullInt64{}, sql.NullString{}
	}
	return sql.NullInt64{Int64: c.ID, Valid: true}, sql.NullString{String: c.Code, Valid: true}
}

func indexSnapshot(i *domain.RateIndex) (sql.NullInt64, sql.NullString) {
	if i == nil {
		return sql.NullInt64{}, sql.NullString{}
	}
	return sql.NullInt64{Int64: i.ID, Valid: true}, sql.NullString{String: i.Name, Valid: true}
}

func scheduleSnapshot(s *domain.Schedule) (sql.NullInt64, sql.NullString) {
	if s == nil {
		return sql.NullInt64{}, sql.NullString{}
	}
	return sql.NullInt64{Int64: s.ID, Valid: true}, sql.NullString{String: s.Label, Valid: true}
}

func bdcSnapshot(b *domain.BusinessDayConvention) (sql.NullInt64, sql.NullString) {
	if b == nil {
		return sql.NullInt64{}, sql.NullString{}
	}
	return sql.NullInt64{Int64: b.ID, Valid: true}, sql.NullString{String: b.Name, Valid: true}
}

func calendarSnapshot(c *domain.HolidayCalendar) (sql.NullInt64, sql.NullString) {
	if c == nil {
		return sql.NullInt64{}, sql.NullString{}
	}
	return sql.NullInt64{Int64: c.ID, Valid: true}, sql.NullString{String: c.Name, Valid: true}
}

func payRecSnapshot(p *domain.PayRec) (sql.NullInt64, sql.NullString) {
	if p == nil {
		return sql.NullInt64{}, sql.NullString{}
	}
	return sql.NullInt64{Int64: p.ID, Valid: true}, sql.NullString{String: p.Direction, Valid: true}
}
