/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements engine.Store and engine.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:            Staff records
  sales, returns:       Raw records synced from the retail system (idempotent by id)
  rankings:             One row per (employee_id, period), replaced per period
  earned_achievements:  Append-only, UNIQUE(employee_id, code, period)

REPLACE-BY-PERIOD:
  ReplacePeriod upserts every entry stamped with a fresh run id, then
  deletes the period's rows carrying any other run id, all in one SQL
  transaction. Readers see either the old or the new ranking.

CALENDAR DAYS:
  Sales and returns store their instant (RFC3339, UTC) plus the calendar
  day in the store's location, so period and streak queries are plain
  string comparisons on the day column.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/sales.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/sales-engine/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	loc *time.Location
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the time zone used to bucket records into calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, loc: time.UTC}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Location returns the time zone used for calendar days.
func (s *Store) Location() *time.Location { return s.loc }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		photo_url TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		sold_at TEXT NOT NULL,
		sale_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_date
		ON sales(sale_date);
	CREATE INDEX IF NOT EXISTS idx_sales_employee_date
		ON sales(employee_id, sale_date);

	CREATE TABLE IF NOT EXISTS returns (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		returned_at TEXT NOT NULL,
		return_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_returns_date
		ON returns(return_date);

	-- One row per employee per period; rewritten on every recalculation
	CREATE TABLE IF NOT EXISTS rankings (
		employee_id TEXT NOT NULL,
		period TEXT NOT NULL,
		rank INTEGER NOT NULL,
		net_sales TEXT NOT NULL,
		gross_sales TEXT NOT NULL,
		returns TEXT NOT NULL,
		sales_count INTEGER NOT NULL,
		returns_count INTEGER NOT NULL,
		avg_check TEXT NOT NULL,
		best_day_sales TEXT NOT NULL,
		run_id TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, period)
	);

	CREATE INDEX IF NOT EXISTS idx_rankings_period_rank
		ON rankings(period, rank);

	-- Append-only: never updated; only Reset deletes from it
	CREATE TABLE IF NOT EXISTS earned_achievements (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		code TEXT NOT NULL,
		period TEXT NOT NULL,
		earned_at TEXT NOT NULL,
		metadata_json TEXT,
		UNIQUE(employee_id, code, period)
	);

	CREATE INDEX IF NOT EXISTS idx_earned_employee
		ON earned_achievements(employee_id, period);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee saves an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp engine.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEmployee(ctx, s.db, emp)
}

func saveEmployee(ctx context.Context, db dbtx, emp engine.Employee) error {
	query := `
		INSERT INTO employees (id, name, role, photo_url, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			photo_url = excluded.photo_url,
			active = excluded.active
	`
	_, err := db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Role, nullString(emp.PhotoURL), emp.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID. Returns nil, nil when missing.
func (s *Store) GetEmployee(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, db dbtx, id engine.EmployeeID) (*engine.Employee, error) {
	var emp engine.Employee
	var photo sql.NullString

	err := db.QueryRowContext(ctx,
		"SELECT id, name, role, photo_url, active FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &emp.Role, &photo, &emp.Active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	emp.PhotoURL = photo.String
	return &emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]engine.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployees(ctx, s.db)
}

func listEmployees(ctx context.Context, db dbtx) ([]engine.Employee, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, role, photo_url, active FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []engine.Employee
	for rows.Next() {
		var emp engine.Employee
		var photo sql.NullString
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Role, &photo, &emp.Active); err != nil {
			return nil, err
		}
		emp.PhotoURL = photo.String
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// SALES STORE (engine.SalesStore interface)
// =============================================================================

// AppendSales stores sales. Existing IDs are ignored; empty IDs get a UUID.
func (s *Store) AppendSales(ctx context.Context, sales []engine.SaleRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int
	err := s.inTx(ctx, func(tx dbtx) error {
		var err error
		inserted, err = s.appendSales(ctx, tx, sales)
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) appendSales(ctx context.Context, db dbtx, sales []engine.SaleRecord) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for _, r := range sales {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		res, err := db.ExecContext(ctx, `
			INSERT INTO sales (id, employee_id, amount, sold_at, sale_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			r.ID, r.EmployeeID, r.Amount.String(),
			r.At.UTC().Format(time.RFC3339),
			engine.DateOf(r.At, s.loc).String(),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append sale %s: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to append sale %s: %w", r.ID, err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// AppendReturns stores returns. Existing IDs are ignored; empty IDs get a UUID.
func (s *Store) AppendReturns(ctx context.Context, returns []engine.ReturnRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int
	err := s.inTx(ctx, func(tx dbtx) error {
		var err error
		inserted, err = s.appendReturns(ctx, tx, returns)
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) appendReturns(ctx context.Context, db dbtx, returns []engine.ReturnRecord) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for _, r := range returns {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		res, err := db.ExecContext(ctx, `
			INSERT INTO returns (id, employee_id, amount, returned_at, return_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			r.ID, r.EmployeeID, r.Amount.String(),
			r.At.UTC().Format(time.RFC3339),
			engine.DateOf(r.At, s.loc).String(),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append return %s: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to append return %s: %w", r.ID, err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// LoadSales returns sales with sale_date in [from, to].
func (s *Store) LoadSales(ctx context.Context, from, to engine.Date) ([]engine.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadSales(ctx, s.db, from, to)
}

func loadSales(ctx context.Context, db dbtx, from, to engine.Date) ([]engine.SaleRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, employee_id, amount, sold_at
		FROM sales
		WHERE sale_date >= ? AND sale_date <= ?
		ORDER BY sold_at ASC, id ASC`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var out []engine.SaleRecord
	for rows.Next() {
		var r engine.SaleRecord
		var amount, at string
		if err := rows.Scan(&r.ID, &r.EmployeeID, &amount, &at); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount for sale %s: %w", r.ID, err)
		}
		if r.At, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("invalid timestamp for sale %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadReturns returns returns with return_date in [from, to].
func (s *Store) LoadReturns(ctx context.Context, from, to engine.Date) ([]engine.ReturnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadReturns(ctx, s.db, from, to)
}

func loadReturns(ctx context.Context, db dbtx, from, to engine.Date) ([]engine.ReturnRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, employee_id, amount, returned_at
		FROM returns
		WHERE return_date >= ? AND return_date <= ?
		ORDER BY returned_at ASC, id ASC`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	var out []engine.ReturnRecord
	for rows.Next() {
		var r engine.ReturnRecord
		var amount, at string
		if err := rows.Scan(&r.ID, &r.EmployeeID, &amount, &at); err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount for return %s: %w", r.ID, err)
		}
		if r.At, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("invalid timestamp for return %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BestDayBefore returns the best single-day gross before the given day.
// Amounts are summed in Go to keep decimal precision.
func (s *Store) BestDayBefore(ctx context.Context, employeeID engine.EmployeeID, before engine.Date) (*decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bestDayBefore(ctx, s.db, employeeID, before)
}

func bestDayBefore(ctx context.Context, db dbtx, employeeID engine.EmployeeID, before engine.Date) (*decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT sale_date, amount FROM sales
		WHERE employee_id = ? AND sale_date < ?`,
		employeeID, before.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query best day: %w", err)
	}
	defer rows.Close()

	daily := make(map[string]decimal.Decimal)
	for rows.Next() {
		var day, amount string
		if err := rows.Scan(&day, &amount); err != nil {
			return nil, err
		}
		daily[day] = daily[day].Add(engine.MustParseDecimal(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(daily) == 0 {
		return nil, nil
	}
	best := decimal.Zero
	for _, total := range daily {
		if total.GreaterThan(best) {
			best = total
		}
	}
	return &best, nil
}

// ActivityRange returns the first and last sale day on record.
// ok is false when there are no sales.
func (s *Store) ActivityRange(ctx context.Context) (first, last engine.Date, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var minDay, maxDay sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT MIN(sale_date), MAX(sale_date) FROM sales").Scan(&minDay, &maxDay)
	if err != nil || !minDay.Valid {
		return engine.Date{}, engine.Date{}, false, err
	}
	if first, err = engine.ParseDate(minDay.String); err != nil {
		return engine.Date{}, engine.Date{}, false, err
	}
	if last, err = engine.ParseDate(maxDay.String); err != nil {
		return engine.Date{}, engine.Date{}, false, err
	}
	return first, last, true, nil
}

// =============================================================================
// RANKING STORE (engine.RankingStore interface)
// =============================================================================

// ReplacePeriod atomically replaces the period's ranking.
func (s *Store) ReplacePeriod(ctx context.Context, period engine.Period, entries []engine.RankingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx dbtx) error { return replacePeriod(ctx, tx, period, entries) })
}

func replacePeriod(ctx context.Context, db dbtx, period engine.Period, entries []engine.RankingEntry) error {
	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO rankings
		(employee_id, period, rank, net_sales, gross_sales, returns, sales_count,
		 returns_count, avg_check, best_day_sales, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, period) DO UPDATE SET
			rank = excluded.rank,
			net_sales = excluded.net_sales,
			gross_sales = excluded.gross_sales,
			returns = excluded.returns,
			sales_count = excluded.sales_count,
			returns_count = excluded.returns_count,
			avg_check = excluded.avg_check,
			best_day_sales = excluded.best_day_sales,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at
	`
	for _, e := range entries {
		_, err := db.ExecContext(ctx, query,
			e.EmployeeID, period.String(), e.Rank,
			e.NetSales.String(), e.GrossSales.String(), e.Returns.String(),
			e.SalesCount, e.ReturnsCount,
			e.AvgCheck.String(), e.BestDaySales.String(),
			runID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert ranking for %s: %w", e.EmployeeID, err)
		}
	}

	// Cleanup: employees no longer present in this period's ranking
	if _, err := db.ExecContext(ctx,
		"DELETE FROM rankings WHERE period = ? AND run_id <> ?",
		period.String(), runID,
	); err != nil {
		return fmt.Errorf("failed to clean stale rankings: %w", err)
	}
	return nil
}

// LoadPeriod returns the period's ranking ordered by rank.
func (s *Store) LoadPeriod(ctx context.Context, period engine.Period) ([]engine.RankingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadPeriod(ctx, s.db, period)
}

func loadPeriod(ctx context.Context, db dbtx, period engine.Period) ([]engine.RankingEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT employee_id, rank, net_sales, gross_sales, returns, sales_count,
		       returns_count, avg_check, best_day_sales
		FROM rankings
		WHERE period = ?
		ORDER BY rank ASC`,
		period.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	var out []engine.RankingEntry
	for rows.Next() {
		e := engine.RankingEntry{Period: period}
		var net, gross, ret, avg, best string
		if err := rows.Scan(&e.EmployeeID, &e.Rank, &net, &gross, &ret,
			&e.SalesCount, &e.ReturnsCount, &avg, &best); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		e.NetSales = engine.MustParseDecimal(net)
		e.GrossSales = engine.MustParseDecimal(gross)
		e.Returns = engine.MustParseDecimal(ret)
		e.AvgCheck = engine.MustParseDecimal(avg)
		e.BestDaySales = engine.MustParseDecimal(best)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// ACHIEVEMENT LEDGER (engine.AchievementLedger interface)
// =============================================================================

// AppendEarned adds earned achievements atomically. Append-only.
func (s *Store) AppendEarned(ctx context.Context, earned []engine.EarnedAchievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx dbtx) error { return appendEarned(ctx, tx, earned) })
}

func appendEarned(ctx context.Context, db dbtx, earned []engine.EarnedAchievement) error {
	query := `
		INSERT INTO earned_achievements (id, employee_id, code, period, earned_at, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, e := range earned {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		metadataJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s/%s: %w", e.EmployeeID, e.Code, err)
		}
		_, err = db.ExecContext(ctx, query,
			e.ID, e.EmployeeID, e.Code, e.Period.String(),
			e.EarnedAt.UTC().Format(time.RFC3339),
			string(metadataJSON),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%s/%s/%s: %w", e.EmployeeID, e.Code, e.Period, engine.ErrDuplicateAchievement)
			}
			return fmt.Errorf("failed to append achievement: %w", err)
		}
	}
	return nil
}

// EarnedCodes returns the codes the employee already earned in period.
func (s *Store) EarnedCodes(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return earnedCodes(ctx, s.db, employeeID, period)
}

func earnedCodes(ctx context.Context, db dbtx, employeeID engine.EmployeeID, period engine.Period) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT code FROM earned_achievements WHERE employee_id = ? AND period = ?",
		employeeID, period.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes[code] = true
	}
	return codes, rows.Err()
}

// ListEarned returns every achievement the employee earned, oldest first.
func (s *Store) ListEarned(ctx context.Context, employeeID engine.EmployeeID) ([]engine.EarnedAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEarned(ctx, s.db, employeeID)
}

func listEarned(ctx context.Context, db dbtx, employeeID engine.EmployeeID) ([]engine.EarnedAchievement, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, employee_id, code, period, earned_at, metadata_json
		FROM earned_achievements
		WHERE employee_id = ?
		ORDER BY earned_at ASC, code ASC`,
		employeeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.EarnedAchievement
	for rows.Next() {
		var e engine.EarnedAchievement
		var period, earnedAt string
		var metadataJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Code, &period, &earnedAt, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		if e.Period, err = engine.ParsePeriod(period); err != nil {
			return nil, fmt.Errorf("invalid period for achievement %s: %w", e.ID, err)
		}
		if e.EarnedAt, err = time.Parse(time.RFC3339, earnedAt); err != nil {
			return nil, fmt.Errorf("invalid earned_at for achievement %s: %w", e.ID, err)
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("invalid metadata for achievement %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (engine.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx dbtx) error {
		return fn(&txStore{tx: tx, parent: s})
	})
}

// inTx runs fn in a SQL transaction. Callers hold s.mu.
func (s *Store) inTx(ctx context.Context, fn func(tx dbtx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx     dbtx
	parent *Store
}

func (ts *txStore) SaveEmployee(ctx context.Context, emp engine.Employee) error {
	return saveEmployee(ctx, ts.tx, emp)
}

func (ts *txStore) GetEmployee(ctx context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) ListEmployees(ctx context.Context) ([]engine.Employee, error) {
	return listEmployees(ctx, ts.tx)
}

func (ts *txStore) AppendSales(ctx context.Context, sales []engine.SaleRecord) (int, error) {
	return ts.parent.appendSales(ctx, ts.tx, sales)
}

func (ts *txStore) AppendReturns(ctx context.Context, returns []engine.ReturnRecord) (int, error) {
	return ts.parent.appendReturns(ctx, ts.tx, returns)
}

func (ts *txStore) LoadSales(ctx context.Context, from, to engine.Date) ([]engine.SaleRecord, error) {
	return loadSales(ctx, ts.tx, from, to)
}

func (ts *txStore) LoadReturns(ctx context.Context, from, to engine.Date) ([]engine.ReturnRecord, error) {
	return loadReturns(ctx, ts.tx, from, to)
}

func (ts *txStore) BestDayBefore(ctx context.Context, employeeID engine.EmployeeID, before engine.Date) (*decimal.Decimal, error) {
	return bestDayBefore(ctx, ts.tx, employeeID, before)
}

func (ts *txStore) ReplacePeriod(ctx context.Context, period engine.Period, entries []engine.RankingEntry) error {
	return replacePeriod(ctx, ts.tx, period, entries)
}

func (ts *txStore) LoadPeriod(ctx context.Context, period engine.Period) ([]engine.RankingEntry, error) {
	return loadPeriod(ctx, ts.tx, period)
}

func (ts *txStore) AppendEarned(ctx context.Context, earned []engine.EarnedAchievement) error {
	return appendEarned(ctx, ts.tx, earned)
}

func (ts *txStore) EarnedCodes(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) (map[string]bool, error) {
	return earnedCodes(ctx, ts.tx, employeeID, period)
}

func (ts *txStore) ListEarned(ctx context.Context, employeeID engine.EmployeeID) ([]engine.EarnedAchievement, error) {
	return listEarned(ctx, ts.tx, employeeID)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"earned_achievements", "rankings", "returns", "sales", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
