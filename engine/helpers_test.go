package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/sales-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s %v", want, got, msgAndArgs)
}

func date(s string) engine.Date {
	return engine.MustParseDate(s)
}

func dates(ss ...string) []engine.Date {
	out := make([]engine.Date, len(ss))
	for i, s := range ss {
		out[i] = date(s)
	}
	return out
}

// sellerSchedule is the three-band schedule used throughout the tests:
// [0,1M)@5%, [1M,2M)@6%, [2M,2.5M)@7%, base 50,000.
func sellerSchedule() engine.TierSchedule {
	return engine.TierSchedule{
		Role:       "seller",
		BaseSalary: dec("50000"),
		Tiers: []engine.Tier{
			{MinSales: dec("0"), MaxSales: dec("1000000"), Percentage: dec("5"), Label: "Bronze"},
			{MinSales: dec("1000000"), MaxSales: dec("2000000"), Percentage: dec("6"), Label: "Silver"},
			{MinSales: dec("2000000"), MaxSales: dec("2500000"), Percentage: dec("7"), Label: "Gold"},
		},
	}
}

func testLadder() engine.LevelLadder {
	return engine.LevelLadder{
		{Level: 1, Name: "Rookie", MinPower: 0},
		{Level: 2, Name: "Seller", MinPower: 500},
		{Level: 3, Name: "Pro", MinPower: 1000},
		{Level: 4, Name: "Expert", MinPower: 1500},
	}
}

func testPowerConfig() engine.PowerConfig {
	return engine.PowerConfig{
		BaseDivisor:         dec("1000"),
		ZeroReturnsBonus:    50,
		ZeroReturnsMinSales: 10,
		BonusPerTenPercent:  25,
	}
}

func mustDefinition(code string, kind engine.CriteriaType, value string) engine.AchievementDefinition {
	d, err := engine.NewAchievementDefinition(code, code, kind, dec(value), true)
	if err != nil {
		panic(err)
	}
	return d
}

func testConfig() engine.Config {
	return engine.Config{
		Schedules:   map[string]engine.TierSchedule{"seller": sellerSchedule()},
		DefaultRole: "seller",
		Ladder:      testLadder(),
		Power:       testPowerConfig(),
		Catalog: []engine.AchievementDefinition{
			mustDefinition("first_sale", engine.CriteriaSalesCount, "1"),
			mustDefinition("net_1m", engine.CriteriaNetSales, "1000000"),
			mustDefinition("top_1", engine.CriteriaRank, "1"),
			mustDefinition("streak_3", engine.CriteriaStreak, "3"),
		},
		Rank: engine.RankOptions{TieBreak: engine.TieBreakEmployeeID},
	}
}

// sale builds a sale at noon UTC on day.
func sale(id, employee, amount, day string) engine.SaleRecord {
	d := date(day)
	return engine.SaleRecord{
		ID:         id,
		EmployeeID: engine.EmployeeID(employee),
		Amount:     dec(amount),
		At:         time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC),
	}
}

func refund(id, employee, amount, day string) engine.ReturnRecord {
	d := date(day)
	return engine.ReturnRecord{
		ID:         id,
		EmployeeID: engine.EmployeeID(employee),
		Amount:     dec(amount),
		At:         time.Date(d.Year(), d.Month(), d.Day(), 15, 0, 0, 0, time.UTC),
	}
}
