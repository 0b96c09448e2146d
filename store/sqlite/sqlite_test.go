package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sales-engine/engine"
	"github.com/warp/sales-engine/store/sqlite"
)

var june = engine.NewPeriod(2024, time.June)

func newTestStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func saleAt(id, employee, amount string, at time.Time) engine.SaleRecord {
	return engine.SaleRecord{ID: id, EmployeeID: engine.EmployeeID(employee), Amount: decimal.RequireFromString(amount), At: at}
}

func mustAppendSales(t *testing.T, s *sqlite.Store, sales []engine.SaleRecord) int {
	t.Helper()
	n, err := s.AppendSales(context.Background(), sales)
	require.NoError(t, err)
	return n
}

func mustAppendReturns(t *testing.T, s *sqlite.Store, returns []engine.ReturnRecord) int {
	t.Helper()
	n, err := s.AppendReturns(context.Background(), returns)
	require.NoError(t, err)
	return n
}

func noon(day int, month time.Month) time.Time {
	return time.Date(2024, month, day, 12, 0, 0, 0, time.UTC)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestSQLite_Employees(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveEmployee(ctx, engine.Employee{ID: "emp-2", Name: "Bob", Role: "seller", Active: true}))
	require.NoError(t, s.SaveEmployee(ctx, engine.Employee{ID: "emp-1", Name: "Alice", Role: "seller", PhotoURL: "https://example.com/a.png", Active: true}))
	require.NoError(t, s.SaveEmployee(ctx, engine.Employee{ID: "emp-2", Name: "Bob", Role: "senior_seller", Active: false}))

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Name)
	assert.Equal(t, "https://example.com/a.png", list[0].PhotoURL)
	assert.Equal(t, "senior_seller", list[1].Role)
	assert.False(t, list[1].Active)

	got, err := s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Active)

	missing, err := s.GetEmployee(ctx, "emp-9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// SALES
// =============================================================================

func TestSQLite_SalesRoundTrip(t *testing.T) {
	// GIVEN: Sales and returns synced twice, one sale without an ID
	// WHEN: Loading June
	// THEN: Duplicates are skipped, amounts keep their precision

	ctx := context.Background()
	s := newTestStore(t)

	batch := []engine.SaleRecord{
		saleAt("s1", "emp-1", "1234.56", noon(3, time.June)),
		saleAt("s2", "emp-1", "100", noon(1, time.July)),
		saleAt("", "emp-2", "0.01", noon(4, time.June)),
	}
	assert.Equal(t, 3, mustAppendSales(t, s, batch))
	assert.Equal(t, 0, mustAppendSales(t, s, batch[:1]))
	ret := engine.ReturnRecord{ID: "r1", EmployeeID: "emp-1", Amount: decimal.RequireFromString("34.56"), At: noon(5, time.June)}
	assert.Equal(t, 1, mustAppendReturns(t, s, []engine.ReturnRecord{ret}))
	assert.Equal(t, 0, mustAppendReturns(t, s, []engine.ReturnRecord{ret}))

	sales, err := s.LoadSales(ctx, june.Start(), june.End())
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "s1", sales[0].ID)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(sales[0].Amount))
	assert.True(t, noon(3, time.June).Equal(sales[0].At))
	assert.NotEmpty(t, sales[1].ID)

	returns, err := s.LoadReturns(ctx, june.Start(), june.End())
	require.NoError(t, err)
	require.Len(t, returns, 1)
	assert.Equal(t, engine.EmployeeID("emp-1"), returns[0].EmployeeID)
}

func TestSQLite_CalendarDayUsesLocation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, sqlite.WithLocation(time.FixedZone("UTC-4", -4*60*60)))

	// 02:00 UTC on July 1 is still June 30 four hours west
	mustAppendSales(t, s, []engine.SaleRecord{
		saleAt("s1", "emp-1", "10", time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)),
	})

	sales, err := s.LoadSales(ctx, june.Start(), june.End())
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestSQLite_BestDayBeforeAndActivityRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, _, ok, err := s.ActivityRange(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	mustAppendSales(t, s, []engine.SaleRecord{
		saleAt("s1", "emp-1", "300", noon(10, time.May)),
		saleAt("s2", "emp-1", "400.50", noon(10, time.May)),
		saleAt("s3", "emp-1", "500", noon(11, time.May)),
		saleAt("s4", "emp-1", "9000", noon(2, time.June)),
	})

	best, err := s.BestDayBefore(ctx, "emp-1", june.Start())
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.True(t, decimal.RequireFromString("700.50").Equal(*best))

	none, err := s.BestDayBefore(ctx, "emp-2", june.Start())
	require.NoError(t, err)
	assert.Nil(t, none)

	first, last, ok, err := s.ActivityRange(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-05-10", first.String())
	assert.Equal(t, "2024-06-02", last.String())
}

// =============================================================================
// RANKINGS
// =============================================================================

func TestSQLite_ReplacePeriod(t *testing.T) {
	// GIVEN: A stored June ranking with three employees
	// WHEN: Replacing it with two entries
	// THEN: The employee no longer ranked is gone, other periods untouched

	ctx := context.Background()
	s := newTestStore(t)

	entry := func(id string, rank int, net string) engine.RankingEntry {
		return engine.RankingEntry{
			EmployeeID: engine.EmployeeID(id), Rank: rank,
			NetSales: decimal.RequireFromString(net), GrossSales: decimal.RequireFromString(net),
			SalesCount: 3,
		}
	}

	require.NoError(t, s.ReplacePeriod(ctx, june.Previous(), []engine.RankingEntry{entry("emp-9", 1, "5")}))
	require.NoError(t, s.ReplacePeriod(ctx, june, []engine.RankingEntry{
		entry("emp-1", 1, "300"), entry("emp-2", 2, "200"), entry("emp-3", 3, "100"),
	}))
	require.NoError(t, s.ReplacePeriod(ctx, june, []engine.RankingEntry{
		entry("emp-3", 1, "900.25"), entry("emp-1", 2, "300"),
	}))

	entries, err := s.LoadPeriod(ctx, june)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, engine.EmployeeID("emp-3"), entries[0].EmployeeID)
	assert.Equal(t, june, entries[0].Period)
	assert.True(t, decimal.RequireFromString("900.25").Equal(entries[0].NetSales))
	assert.Equal(t, 3, entries[0].SalesCount)

	may, err := s.LoadPeriod(ctx, june.Previous())
	require.NoError(t, err)
	assert.Len(t, may, 1)
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

func TestSQLite_AchievementsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := engine.EarnedAchievement{
		EmployeeID: "emp-1", Code: "top_1", Period: june,
		EarnedAt: noon(30, time.June), Metadata: map[string]string{"rank": "1"},
	}
	require.NoError(t, s.AppendEarned(ctx, []engine.EarnedAchievement{first}))

	err := s.AppendEarned(ctx, []engine.EarnedAchievement{
		{EmployeeID: "emp-1", Code: "net_1m", Period: june, EarnedAt: noon(30, time.June)},
		{EmployeeID: "emp-1", Code: "top_1", Period: june, EarnedAt: noon(30, time.June)},
	})
	assert.True(t, errors.Is(err, engine.ErrDuplicateAchievement))
	assert.True(t, engine.IsConflict(err))

	codes, err := s.EarnedCodes(ctx, "emp-1", june)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"top_1": true}, codes)

	all, err := s.ListEarned(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.Equal(t, june, all[0].Period)
	assert.Equal(t, "1", all[0].Metadata["rank"])
}

func TestSQLite_CorruptRowsSurfaceErrors(t *testing.T) {
	// GIVEN: A database file edited outside the store with unreadable values
	// WHEN: Loading sales, returns and achievements
	// THEN: Each read fails naming the bad row instead of returning zero values

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sales.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	_, err = raw.ExecContext(ctx, `INSERT INTO sales (id, employee_id, amount, sold_at, sale_date, created_at)
		VALUES ('bad-sale', 'emp-1', '100', 'yesterday', '2024-06-10', '2024-06-10T12:00:00Z')`)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `INSERT INTO returns (id, employee_id, amount, returned_at, return_date, created_at)
		VALUES ('bad-return', 'emp-1', 'ten', '2024-06-11T12:00:00Z', '2024-06-11', '2024-06-11T12:00:00Z')`)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `INSERT INTO earned_achievements (id, employee_id, code, period, earned_at, metadata_json)
		VALUES ('bad-period', 'emp-1', 'top_1', 'June', '2024-06-30T12:00:00Z', NULL),
		       ('bad-meta', 'emp-2', 'top_1', '2024-06', '2024-06-30T12:00:00Z', '{rank')`)
	require.NoError(t, err)

	from, to := engine.NewDate(2024, time.June, 1), engine.NewDate(2024, time.June, 30)

	_, err = s.LoadSales(ctx, from, to)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-sale")

	_, err = s.LoadReturns(ctx, from, to)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-return")

	_, err = s.ListEarned(ctx, "emp-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-period")

	_, err = s.ListEarned(ctx, "emp-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-meta")
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLite_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.ReplacePeriod(ctx, june, []engine.RankingEntry{{EmployeeID: "emp-1", Rank: 1}}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx engine.Store) error {
		if err := tx.ReplacePeriod(ctx, june, []engine.RankingEntry{{EmployeeID: "emp-2", Rank: 1}}); err != nil {
			return err
		}
		if err := tx.AppendEarned(ctx, []engine.EarnedAchievement{{EmployeeID: "emp-2", Code: "top_1", Period: june, EarnedAt: noon(1, time.June)}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := s.LoadPeriod(ctx, june)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.EmployeeID("emp-1"), entries[0].EmployeeID)

	codes, err := s.EarnedCodes(ctx, "emp-2", june)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestSQLite_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveEmployee(ctx, engine.Employee{ID: "emp-1", Name: "Alice", Active: true}))
	mustAppendSales(t, s, []engine.SaleRecord{saleAt("s1", "emp-1", "1", noon(1, time.June))})

	require.NoError(t, s.Reset(ctx))

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, _, ok, err := s.ActivityRange(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
