package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sales-engine/engine"
)

func TestAggregatePeriod(t *testing.T) {
	// GIVEN: Sales and returns across two months for two employees,
	//        plus an active employee with no sales and an inactive one
	// WHEN: Aggregating June
	// THEN: One entry per active or selling employee, June records only

	june := engine.NewPeriod(2024, time.June)
	employees := []engine.Employee{
		{ID: "emp-a", Role: "seller", Active: true},
		{ID: "emp-b", Role: "senior_seller", Active: true},
		{ID: "emp-c", Role: "seller", Active: true},
		{ID: "emp-z", Role: "seller", Active: false},
	}
	sales := []engine.SaleRecord{
		sale("s1", "emp-a", "1000", "2024-06-01"),
		sale("s2", "emp-a", "3000", "2024-06-01"),
		sale("s3", "emp-a", "2000", "2024-06-03"),
		sale("s4", "emp-a", "9999", "2024-05-31"),
		sale("s5", "emp-b", "500", "2024-06-30"),
	}
	returns := []engine.ReturnRecord{
		refund("r1", "emp-a", "400", "2024-06-02"),
		refund("r2", "emp-b", "100", "2024-07-01"),
	}

	stats := engine.AggregatePeriod(june, employees, sales, returns, time.UTC)

	require.Len(t, stats, 3)
	a, b, c := stats[0], stats[1], stats[2]

	assert.Equal(t, engine.EmployeeID("emp-a"), a.EmployeeID)
	assert.Equal(t, "seller", a.Role)
	assert.Equal(t, june, a.Period)
	assertDecimal(t, "6000", a.GrossSales)
	assertDecimal(t, "400", a.Returns)
	assertDecimal(t, "5600", a.NetSales)
	assert.Equal(t, 3, a.SalesCount)
	assert.Equal(t, 1, a.ReturnsCount)
	assertDecimal(t, "2000", a.AvgCheck)
	assertDecimal(t, "4000", a.BestDaySales)
	assert.Equal(t, dates("2024-06-01", "2024-06-03"), a.ActivityDates)

	assert.Equal(t, "senior_seller", b.Role)
	assertDecimal(t, "500", b.NetSales)
	assert.Equal(t, 0, b.ReturnsCount)

	assert.Equal(t, engine.EmployeeID("emp-c"), c.EmployeeID)
	assert.Equal(t, 0, c.SalesCount)
	assertDecimal(t, "0", c.AvgCheck)
	assert.Empty(t, c.ActivityDates)
}

func TestAggregatePeriod_UsesLocationForCalendarDay(t *testing.T) {
	// GIVEN: A sale at 23:30 UTC on May 31
	// WHEN: Aggregating June in UTC+3
	// THEN: The sale is a June 1 sale

	loc := time.FixedZone("UTC+3", 3*60*60)
	s := engine.SaleRecord{ID: "s1", EmployeeID: "emp-a", Amount: dec("100"), At: time.Date(2024, 5, 31, 23, 30, 0, 0, time.UTC)}

	stats := engine.AggregatePeriod(engine.NewPeriod(2024, time.June), nil, []engine.SaleRecord{s}, nil, loc)

	require.Len(t, stats, 1)
	assert.Equal(t, dates("2024-06-01"), stats[0].ActivityDates)
}

func TestAggregatePeriod_InactiveSellerStillCounted(t *testing.T) {
	employees := []engine.Employee{{ID: "emp-z", Role: "senior_seller", Active: false}}
	sales := []engine.SaleRecord{sale("s1", "emp-z", "100", "2024-06-05")}

	stats := engine.AggregatePeriod(engine.NewPeriod(2024, time.June), employees, sales, nil, time.UTC)

	require.Len(t, stats, 1)
	assert.Equal(t, "senior_seller", stats[0].Role)
}

func TestAttachPrior(t *testing.T) {
	current := []engine.EmployeePeriodStats{stat("emp-a", "100"), stat("emp-b", "200"), stat("emp-c", "300")}
	previous := []engine.EmployeePeriodStats{
		{EmployeeID: "emp-a", NetSales: dec("80"), SalesCount: 4, AvgCheck: dec("20")},
		{EmployeeID: "emp-b"},
	}
	ranks := map[engine.EmployeeID]int{"emp-a": 2}

	engine.AttachPrior(current, previous, ranks)

	require.NotNil(t, current[0].Previous)
	assert.Equal(t, 2, current[0].Previous.Rank)
	assertDecimal(t, "80", current[0].Previous.NetSales)
	require.NotNil(t, current[0].Previous.AvgCheck)
	assertDecimal(t, "20", *current[0].Previous.AvgCheck)

	require.NotNil(t, current[1].Previous)
	assert.Equal(t, 0, current[1].Previous.Rank)
	assert.Nil(t, current[1].Previous.AvgCheck)

	assert.Nil(t, current[2].Previous)
}

func TestDepartmentAvgCheck(t *testing.T) {
	stats := []engine.EmployeePeriodStats{
		{GrossSales: dec("3000"), SalesCount: 2},
		{GrossSales: dec("1000"), SalesCount: 2},
		{},
	}

	assertDecimal(t, "1000", engine.DepartmentAvgCheck(stats))
	assertDecimal(t, "0", engine.DepartmentAvgCheck(nil))
}
