package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sales-engine/engine"
)

var earnedAt = time.Date(2024, time.June, 15, 18, 0, 0, 0, time.UTC)

func codes(earned []engine.NewAchievement) []string {
	out := make([]string, len(earned))
	for i, e := range earned {
		out[i] = e.Code
	}
	return out
}

// =============================================================================
// CRITERIA
// =============================================================================

func TestCriteria(t *testing.T) {
	prevAvg := dec("1000")
	best := dec("50000")

	tests := []struct {
		name  string
		def   engine.AchievementDefinition
		stats engine.EmployeePeriodStats
		want  bool
	}{
		{"sales count met", mustDefinition("c", engine.CriteriaSalesCount, "10"), engine.EmployeePeriodStats{SalesCount: 10}, true},
		{"sales count short", mustDefinition("c", engine.CriteriaSalesCount, "10"), engine.EmployeePeriodStats{SalesCount: 9}, false},
		{"net sales met", mustDefinition("c", engine.CriteriaNetSales, "1000000"), engine.EmployeePeriodStats{NetSales: dec("1000000")}, true},
		{"net sales short", mustDefinition("c", engine.CriteriaNetSales, "1000000"), engine.EmployeePeriodStats{NetSales: dec("999999.99")}, false},
		{"streak by best run", mustDefinition("c", engine.CriteriaStreak, "5"), engine.EmployeePeriodStats{Streak: engine.StreakResult{MaxStreak: 5}}, true},
		{"streak too short", mustDefinition("c", engine.CriteriaStreak, "5"), engine.EmployeePeriodStats{Streak: engine.StreakResult{CurrentStreak: 4, MaxStreak: 4}}, false},
		{"rank within", mustDefinition("c", engine.CriteriaRank, "3"), engine.EmployeePeriodStats{Rank: 3}, true},
		{"rank outside", mustDefinition("c", engine.CriteriaRank, "3"), engine.EmployeePeriodStats{Rank: 4}, false},
		{"unranked", mustDefinition("c", engine.CriteriaRank, "3"), engine.EmployeePeriodStats{Rank: 0}, false},
		{"zero returns", mustDefinition("c", engine.CriteriaZeroReturns, "20"), engine.EmployeePeriodStats{SalesCount: 20}, true},
		{"zero returns too few sales", mustDefinition("c", engine.CriteriaZeroReturns, "20"), engine.EmployeePeriodStats{SalesCount: 19}, false},
		{"one return", mustDefinition("c", engine.CriteriaZeroReturns, "20"), engine.EmployeePeriodStats{SalesCount: 30, ReturnsCount: 1}, false},
		{
			"avg check up 10%", mustDefinition("c", engine.CriteriaAvgCheckGrowth, "10"),
			engine.EmployeePeriodStats{AvgCheck: dec("1100"), Previous: &engine.PriorPeriodStats{AvgCheck: &prevAvg}}, true,
		},
		{
			"avg check up 9.9%", mustDefinition("c", engine.CriteriaAvgCheckGrowth, "10"),
			engine.EmployeePeriodStats{AvgCheck: dec("1099"), Previous: &engine.PriorPeriodStats{AvgCheck: &prevAvg}}, false,
		},
		{
			"avg check without prior", mustDefinition("c", engine.CriteriaAvgCheckGrowth, "10"),
			engine.EmployeePeriodStats{AvgCheck: dec("5000"), Previous: &engine.PriorPeriodStats{}}, false,
		},
		{"first ever best day", mustDefinition("c", engine.CriteriaPersonalBest, "0"), engine.EmployeePeriodStats{BestDaySales: dec("100")}, true},
		{"beats best day", mustDefinition("c", engine.CriteriaPersonalBest, "0"), engine.EmployeePeriodStats{BestDaySales: dec("50000.01"), PersonalBestDay: &best}, true},
		{"ties best day", mustDefinition("c", engine.CriteriaPersonalBest, "0"), engine.EmployeePeriodStats{BestDaySales: dec("50000"), PersonalBestDay: &best}, false},
		{"no sales no best day", mustDefinition("c", engine.CriteriaPersonalBest, "0"), engine.EmployeePeriodStats{}, false},
		{
			"comeback from rank 7", mustDefinition("c", engine.CriteriaComeback, "3"),
			engine.EmployeePeriodStats{Rank: 2, Previous: &engine.PriorPeriodStats{Rank: 7}}, true,
		},
		{"comeback from unranked", mustDefinition("c", engine.CriteriaComeback, "3"), engine.EmployeePeriodStats{Rank: 1}, true},
		{
			"already in top 3", mustDefinition("c", engine.CriteriaComeback, "3"),
			engine.EmployeePeriodStats{Rank: 1, Previous: &engine.PriorPeriodStats{Rank: 3}}, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.def.Criterion()
			require.NoError(t, err)

			ok, metadata := c.Evaluate(tt.stats)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.NotEmpty(t, metadata)
			}
		})
	}
}

func TestCriteria_Metadata(t *testing.T) {
	best := dec("40000")
	c, err := engine.ParseCriterion(engine.CriteriaPersonalBest, decimal.Zero)
	require.NoError(t, err)

	ok, metadata := c.Evaluate(engine.EmployeePeriodStats{BestDaySales: dec("52000"), PersonalBestDay: &best})

	require.True(t, ok)
	assert.Equal(t, "52000.00", metadata["new_best"])
	assert.Equal(t, "40000.00", metadata["previous_best"])
}

func TestParseCriterion_Unknown(t *testing.T) {
	_, err := engine.ParseCriterion("mystery", decimal.Zero)

	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrUnknownCriteria))
	assert.True(t, engine.IsClientError(err))
}

func TestValidateCatalog(t *testing.T) {
	good := []engine.AchievementDefinition{
		mustDefinition("a", engine.CriteriaSalesCount, "1"),
		mustDefinition("b", engine.CriteriaRank, "1"),
	}
	require.NoError(t, engine.ValidateCatalog(good))

	dup := append(good, mustDefinition("a", engine.CriteriaStreak, "3"))
	assert.ErrorIs(t, engine.ValidateCatalog(dup), engine.ErrUnknownCriteria)

	literal := []engine.AchievementDefinition{{Code: "x", CriteriaType: "bogus"}}
	assert.ErrorIs(t, engine.ValidateCatalog(literal), engine.ErrUnknownCriteria)

	// Thresholds a known kind cannot use
	bad := []struct {
		kind  engine.CriteriaType
		value string
	}{
		{engine.CriteriaSalesCount, "-5"},
		{engine.CriteriaSalesCount, "0"},
		{engine.CriteriaSalesCount, "1.5"},
		{engine.CriteriaStreak, "0"},
		{engine.CriteriaRank, "2.5"},
		{engine.CriteriaRank, "0"},
		{engine.CriteriaComeback, "-1"},
		{engine.CriteriaZeroReturns, "-1"},
		{engine.CriteriaZeroReturns, "0.5"},
		{engine.CriteriaNetSales, "-100"},
		{engine.CriteriaAvgCheckGrowth, "-10"},
	}
	for _, b := range bad {
		def := engine.AchievementDefinition{Code: "x", CriteriaType: b.kind, CriteriaValue: dec(b.value)}
		err := engine.ValidateCatalog([]engine.AchievementDefinition{def})
		assert.ErrorIs(t, err, engine.ErrInvalidCriteria, "%s %s", b.kind, b.value)
		assert.True(t, engine.IsClientError(err))

		_, err = engine.NewAchievementDefinition("x", "x", b.kind, dec(b.value), true)
		assert.ErrorIs(t, err, engine.ErrInvalidCriteria, "%s %s", b.kind, b.value)
	}

	// Edge values that are still usable
	for _, ok := range []struct {
		kind  engine.CriteriaType
		value string
	}{
		{engine.CriteriaZeroReturns, "0"},
		{engine.CriteriaNetSales, "0"},
		{engine.CriteriaAvgCheckGrowth, "0"},
		{engine.CriteriaRank, "3.00"},
	} {
		_, err := engine.ParseCriterion(ok.kind, dec(ok.value))
		assert.NoError(t, err, "%s %s", ok.kind, ok.value)
	}
}

// =============================================================================
// EVALUATOR
// =============================================================================

func TestEvaluateAchievements_CatalogOrder(t *testing.T) {
	// GIVEN: Stats satisfying three of four definitions
	// WHEN: Evaluating
	// THEN: The satisfied codes come back in catalog order, stamped earnedAt

	stats := engine.EmployeePeriodStats{SalesCount: 12, NetSales: dec("1200000"), Rank: 2}

	earned := engine.EvaluateAchievements(stats, testConfig().Catalog, nil, earnedAt)

	assert.Equal(t, []string{"first_sale", "net_1m"}, codes(earned))
	for _, e := range earned {
		assert.Equal(t, earnedAt, e.EarnedAt)
	}
}

func TestEvaluateAchievements_Idempotent(t *testing.T) {
	// GIVEN: A first pass has earned some codes
	// WHEN: Re-running with those codes marked as already earned
	// THEN: Nothing new is returned

	stats := engine.EmployeePeriodStats{SalesCount: 12, NetSales: dec("1200000"), Rank: 1}
	catalog := testConfig().Catalog

	first := engine.EvaluateAchievements(stats, catalog, nil, earnedAt)
	require.Len(t, first, 3)

	already := make(map[string]bool)
	for _, e := range first {
		already[e.Code] = true
	}
	second := engine.EvaluateAchievements(stats, catalog, already, earnedAt.Add(time.Hour))

	assert.Empty(t, second)
}

func TestEvaluateAchievements_SkipsInactive(t *testing.T) {
	def := mustDefinition("first_sale", engine.CriteriaSalesCount, "1")
	def.IsActive = false

	earned := engine.EvaluateAchievements(engine.EmployeePeriodStats{SalesCount: 5}, []engine.AchievementDefinition{def}, nil, earnedAt)

	assert.Empty(t, earned)
}
