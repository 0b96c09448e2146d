package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATION - Raw records to per-employee period stats
// =============================================================================

// AggregatePeriod groups raw sales and returns falling inside period into one
// EmployeePeriodStats per employee, ordered by employee ID.
//
// Every active employee in employees gets an entry, even without records, so
// they appear on the leaderboard. Employees with records but no Employee row
// are included with an empty role. Calendar days are taken in loc.
func AggregatePeriod(period Period, employees []Employee, sales []SaleRecord, returns []ReturnRecord, loc *time.Location) []EmployeePeriodStats {
	type acc struct {
		stats EmployeePeriodStats
		daily map[Date]decimal.Decimal
	}
	byEmployee := make(map[EmployeeID]*acc)
	get := func(id EmployeeID) *acc {
		a, ok := byEmployee[id]
		if !ok {
			a = &acc{
				stats: EmployeePeriodStats{EmployeeID: id, Period: period},
				daily: make(map[Date]decimal.Decimal),
			}
			byEmployee[id] = a
		}
		return a
	}

	for _, e := range employees {
		if e.Active {
			get(e.ID).stats.Role = e.Role
		}
	}
	roles := make(map[EmployeeID]string, len(employees))
	for _, e := range employees {
		roles[e.ID] = e.Role
	}

	for _, s := range sales {
		day := DateOf(s.At, loc)
		if !period.Contains(day) {
			continue
		}
		a := get(s.EmployeeID)
		a.stats.GrossSales = a.stats.GrossSales.Add(s.Amount)
		a.stats.SalesCount++
		a.daily[day] = a.daily[day].Add(s.Amount)
	}

	for _, r := range returns {
		if !period.Contains(DateOf(r.At, loc)) {
			continue
		}
		a := get(r.EmployeeID)
		a.stats.Returns = a.stats.Returns.Add(r.Amount)
		a.stats.ReturnsCount++
	}

	out := make([]EmployeePeriodStats, 0, len(byEmployee))
	for id, a := range byEmployee {
		s := a.stats
		if s.Role == "" {
			s.Role = roles[id]
		}
		s.NetSales = s.GrossSales.Sub(s.Returns)
		if s.SalesCount > 0 {
			s.AvgCheck = s.GrossSales.Div(decimal.NewFromInt(int64(s.SalesCount)))
		}
		for day, total := range a.daily {
			s.ActivityDates = append(s.ActivityDates, day)
			if total.GreaterThan(s.BestDaySales) {
				s.BestDaySales = total
			}
		}
		sort.Slice(s.ActivityDates, func(i, j int) bool { return s.ActivityDates[i].Before(s.ActivityDates[j]) })
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

// AttachPrior fills Previous on each current entry from the preceding
// period's stats and stored ranks. Employees with neither stay nil.
func AttachPrior(current []EmployeePeriodStats, previous []EmployeePeriodStats, previousRanks map[EmployeeID]int) {
	prevByID := make(map[EmployeeID]EmployeePeriodStats, len(previous))
	for _, p := range previous {
		prevByID[p.EmployeeID] = p
	}

	for i := range current {
		id := current[i].EmployeeID
		p, hasStats := prevByID[id]
		rank, hasRank := previousRanks[id]
		if !hasStats && !hasRank {
			continue
		}
		prior := &PriorPeriodStats{Rank: rank}
		if hasStats {
			prior.NetSales = p.NetSales
			prior.SalesCount = p.SalesCount
			if p.SalesCount > 0 {
				avg := p.AvgCheck
				prior.AvgCheck = &avg
			}
		}
		current[i].Previous = prior
	}
}

// DepartmentAvgCheck is total gross over total transactions across stats.
func DepartmentAvgCheck(stats []EmployeePeriodStats) decimal.Decimal {
	gross := decimal.Zero
	count := 0
	for _, s := range stats {
		gross = gross.Add(s.GrossSales)
		count += s.SalesCount
	}
	if count == 0 {
		return decimal.Zero
	}
	return gross.Div(decimal.NewFromInt(int64(count)))
}
