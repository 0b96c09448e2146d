/*
store.go - Persistence interfaces consumed by the dashboard service

PURPOSE:
  Defines the boundary between the pure engine and the database. The
  engine never calls these; the dashboard service fetches inputs through
  them and writes the evaluation results back.

KEY INTERFACES:
  SalesStore:        Raw sale/return records (idempotent by record ID)
  EmployeeStore:     Staff records
  RankingStore:      Period rankings, replaced atomically per period
  AchievementLedger: Earned achievements, append-only

REPLACE-BY-PERIOD:
  Recomputing a period must fully overwrite that period's ranking. A reader
  must never observe a half-written period, so ReplacePeriod is a single
  atomic operation (upsert + delete of stale rows in one transaction).

APPEND-ONLY ACHIEVEMENTS:
  AppendEarned never updates or deletes. The (employee, code, period)
  triple is unique; a batch containing an existing triple is rejected as a
  whole with ErrDuplicateAchievement.

IMPLEMENTATIONS:
  - engine/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: SQLite
*/
package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// SalesStore holds the raw records synced from the retail system.
type SalesStore interface {
	// AppendSales stores sales; records whose ID already exists are skipped.
	// Returns the number of records actually inserted.
	AppendSales(ctx context.Context, sales []SaleRecord) (int, error)

	// AppendReturns stores returns; records whose ID already exists are skipped.
	// Returns the number of records actually inserted.
	AppendReturns(ctx context.Context, returns []ReturnRecord) (int, error)

	// LoadSales returns sales with calendar day in [from, to].
	LoadSales(ctx context.Context, from, to Date) ([]SaleRecord, error)

	// LoadReturns returns returns with calendar day in [from, to].
	LoadReturns(ctx context.Context, from, to Date) ([]ReturnRecord, error)

	// BestDayBefore returns the employee's best single-day gross before the
	// given day, or nil if they have no earlier sales.
	BestDayBefore(ctx context.Context, employeeID EmployeeID, before Date) (*decimal.Decimal, error)
}

// EmployeeStore holds staff records.
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error) // nil, nil when missing
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// RankingStore holds one ranking per period.
type RankingStore interface {
	// ReplacePeriod atomically replaces every entry of period with entries.
	ReplacePeriod(ctx context.Context, period Period, entries []RankingEntry) error

	// LoadPeriod returns the period's entries ordered by rank.
	LoadPeriod(ctx context.Context, period Period) ([]RankingEntry, error)
}

// AchievementLedger is the append-only record of earned achievements.
type AchievementLedger interface {
	AppendEarned(ctx context.Context, earned []EarnedAchievement) error
	EarnedCodes(ctx context.Context, employeeID EmployeeID, period Period) (map[string]bool, error)
	ListEarned(ctx context.Context, employeeID EmployeeID) ([]EarnedAchievement, error)
}

// Store is the full persistence surface used by the dashboard service.
type Store interface {
	SalesStore
	EmployeeStore
	RankingStore
	AchievementLedger
}

// TxStore wraps Store with transaction support.
// Used to persist a period's ranking and its new achievements together.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
