package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sales-engine/engine"
	"github.com/warp/sales-engine/engine/store"
)

var june = engine.NewPeriod(2024, time.June)

func saleAt(id, employee string, amount int64, at time.Time) engine.SaleRecord {
	return engine.SaleRecord{ID: id, EmployeeID: engine.EmployeeID(employee), Amount: decimal.NewFromInt(amount), At: at}
}

func mustAppendSales(t *testing.T, m *store.Memory, sales []engine.SaleRecord) int {
	t.Helper()
	n, err := m.AppendSales(context.Background(), sales)
	require.NoError(t, err)
	return n
}

func noon(day int, month time.Month) time.Time {
	return time.Date(2024, month, day, 12, 0, 0, 0, time.UTC)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestMemory_Employees(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveEmployee(ctx, engine.Employee{ID: "emp-2", Name: "Bob", Role: "seller", Active: true}))
	require.NoError(t, m.SaveEmployee(ctx, engine.Employee{ID: "emp-1", Name: "Alice", Role: "seller", Active: true}))
	require.NoError(t, m.SaveEmployee(ctx, engine.Employee{ID: "emp-2", Name: "Bob", Role: "senior_seller", Active: true}))

	list, err := m.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alice", list[0].Name)
	assert.Equal(t, "senior_seller", list[1].Role)

	missing, err := m.GetEmployee(ctx, "emp-9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// SALES
// =============================================================================

func TestMemory_SalesAreIdempotentByID(t *testing.T) {
	// GIVEN: The same sale synced twice
	// WHEN: Loading the period
	// THEN: It is stored once

	ctx := context.Background()
	m := store.NewMemory()

	s := saleAt("s1", "emp-1", 100, noon(3, time.June))
	assert.Equal(t, 1, mustAppendSales(t, m, []engine.SaleRecord{s}))
	assert.Equal(t, 1, mustAppendSales(t, m, []engine.SaleRecord{s, saleAt("s2", "emp-1", 50, noon(4, time.June))}))

	ret := engine.ReturnRecord{ID: "r1", EmployeeID: "emp-1", Amount: decimal.NewFromInt(5), At: noon(4, time.June)}
	n, err := m.AppendReturns(ctx, []engine.ReturnRecord{ret, ret})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sales, err := m.LoadSales(ctx, june.Start(), june.End())
	require.NoError(t, err)
	assert.Len(t, sales, 2)
}

func TestMemory_LoadSalesByCalendarDay(t *testing.T) {
	// GIVEN: A store in UTC+3 and a sale at 22:00 UTC on May 31
	// WHEN: Loading June
	// THEN: The sale belongs to June 1 local time

	ctx := context.Background()
	m := store.NewMemoryIn(time.FixedZone("UTC+3", 3*60*60))

	mustAppendSales(t, m, []engine.SaleRecord{
		saleAt("s1", "emp-1", 100, time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC)),
		saleAt("s2", "emp-1", 100, time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC)),
	})

	sales, err := m.LoadSales(ctx, june.Start(), june.End())
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "s1", sales[0].ID)
}

func TestMemory_BestDayBefore(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	best, err := m.BestDayBefore(ctx, "emp-1", june.Start())
	require.NoError(t, err)
	assert.Nil(t, best)

	mustAppendSales(t, m, []engine.SaleRecord{
		saleAt("s1", "emp-1", 300, noon(10, time.May)),
		saleAt("s2", "emp-1", 400, noon(10, time.May)),
		saleAt("s3", "emp-1", 500, noon(11, time.May)),
		saleAt("s4", "emp-1", 9000, noon(2, time.June)),
		saleAt("s5", "emp-2", 8000, noon(3, time.May)),
	})

	best, err = m.BestDayBefore(ctx, "emp-1", june.Start())
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.True(t, decimal.NewFromInt(700).Equal(*best))
}

// =============================================================================
// RANKINGS
// =============================================================================

func TestMemory_ReplacePeriodOverwrites(t *testing.T) {
	// GIVEN: A stored ranking with three employees
	// WHEN: Replacing it with two entries
	// THEN: Only the new two remain, ordered by rank

	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.ReplacePeriod(ctx, june, []engine.RankingEntry{
		{EmployeeID: "emp-1", Rank: 1}, {EmployeeID: "emp-2", Rank: 2}, {EmployeeID: "emp-3", Rank: 3},
	}))
	require.NoError(t, m.ReplacePeriod(ctx, june, []engine.RankingEntry{
		{EmployeeID: "emp-3", Rank: 2}, {EmployeeID: "emp-1", Rank: 1, IsNew: true},
	}))

	entries, err := m.LoadPeriod(ctx, june)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, engine.EmployeeID("emp-1"), entries[0].EmployeeID)
	assert.Equal(t, june, entries[0].Period)
	assert.False(t, entries[0].IsNew)

	other, err := m.LoadPeriod(ctx, june.Previous())
	require.NoError(t, err)
	assert.Empty(t, other)
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

func TestMemory_AchievementsAppendOnly(t *testing.T) {
	// GIVEN: An earned achievement
	// WHEN: Appending a batch that repeats it
	// THEN: The whole batch is rejected and nothing is added

	ctx := context.Background()
	m := store.NewMemory()

	first := engine.EarnedAchievement{ID: "a1", EmployeeID: "emp-1", Code: "top_1", Period: june, EarnedAt: noon(30, time.June)}
	require.NoError(t, m.AppendEarned(ctx, []engine.EarnedAchievement{first}))

	err := m.AppendEarned(ctx, []engine.EarnedAchievement{
		{ID: "a2", EmployeeID: "emp-1", Code: "net_1m", Period: june},
		{ID: "a3", EmployeeID: "emp-1", Code: "top_1", Period: june},
	})
	assert.True(t, errors.Is(err, engine.ErrDuplicateAchievement))

	codes, err := m.EarnedCodes(ctx, "emp-1", june)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"top_1": true}, codes)

	// Same code in another period is a new achievement
	require.NoError(t, m.AppendEarned(ctx, []engine.EarnedAchievement{
		{ID: "a4", EmployeeID: "emp-1", Code: "top_1", Period: june.Next()},
	}))
	all, err := m.ListEarned(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestMemory_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.ReplacePeriod(ctx, june, []engine.RankingEntry{{EmployeeID: "emp-1", Rank: 1}}))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx engine.Store) error {
		require.NoError(t, tx.ReplacePeriod(ctx, june, []engine.RankingEntry{{EmployeeID: "emp-2", Rank: 1}}))
		require.NoError(t, tx.AppendEarned(ctx, []engine.EarnedAchievement{{EmployeeID: "emp-2", Code: "top_1", Period: june}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, _ := m.LoadPeriod(ctx, june)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.EmployeeID("emp-1"), entries[0].EmployeeID)

	codes, _ := m.EarnedCodes(ctx, "emp-2", june)
	assert.Empty(t, codes)
}

func TestMemory_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	err := m.WithTx(ctx, func(tx engine.Store) error {
		if err := tx.ReplacePeriod(ctx, june, []engine.RankingEntry{{EmployeeID: "emp-2", Rank: 1}}); err != nil {
			return err
		}
		return tx.AppendEarned(ctx, []engine.EarnedAchievement{{EmployeeID: "emp-2", Code: "top_1", Period: june}})
	})
	require.NoError(t, err)

	codes, _ := m.EarnedCodes(ctx, "emp-2", june)
	assert.True(t, codes["top_1"])
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.SaveEmployee(ctx, engine.Employee{ID: "emp-1", Name: "Alice"}))
	mustAppendSales(t, m, []engine.SaleRecord{saleAt("s1", "emp-1", 1, noon(1, time.June))})

	require.NoError(t, m.Reset(ctx))

	list, _ := m.ListEmployees(ctx)
	assert.Empty(t, list)
	sales, _ := m.LoadSales(ctx, june.Start(), june.End())
	assert.Empty(t, sales)

	// IDs seen before the reset can be synced again
	mustAppendSales(t, m, []engine.SaleRecord{saleAt("s1", "emp-1", 1, noon(1, time.June))})
	sales, _ = m.LoadSales(ctx, june.Start(), june.End())
	assert.Len(t, sales, 1)
}
