/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	sales data for demos. Each scenario creates employees, sales and
	returns that demonstrate specific features of the dashboard.

AVAILABLE SCENARIOS:

	tier-showcase: Three sellers in different commission bands
	streaks:       Daily sellers with unbroken and broken streaks
	comeback:      Last month's tail-ender climbing to the top
	full-team:     Six employees over two months, previous month finalized

HOW SCENARIOS WORK:
 1. Reset store (clear all data)
 2. Create employees
 3. Ingest sales and returns relative to the current day
 4. Optionally recalculate the previous month so rank changes show

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "full-team"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handlers for the rest of the API
  - dashboard/presets.go: Configuration the amounts are written against
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/sales-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "tier-showcase",
		Name:        "Tier Showcase",
		Description: "Three sellers in the first, second and top commission band",
	},
	{
		ID:          "streaks",
		Name:        "Streaks",
		Description: "One seller selling every day, one whose streak broke",
	},
	{
		ID:          "comeback",
		Name:        "Comeback",
		Description: "Last month's last place climbs into the top 3",
	},
	{
		ID:          "full-team",
		Name:        "Full Team",
		Description: "Six employees over two months with returns and rank changes",
	},
}

// resetter is implemented by stores that can be wiped.
type resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var loader func(context.Context, *scenarioBuilder) error
	switch req.ScenarioID {
	case "tier-showcase":
		loader = loadTierShowcaseScenario
	case "streaks":
		loader = loadStreaksScenario
	case "comeback":
		loader = loadComebackScenario
	case "full-team":
		loader = loadFullTeamScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.Service.Store().(resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support reset", nil)
		return
	}
	if err := rs.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	b := &scenarioBuilder{h: h, today: h.Service.Today(), loc: h.Service.Location()}
	if err := loader(ctx, b); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO BUILDER
// =============================================================================

// scenarioBuilder places records relative to the current day.
type scenarioBuilder struct {
	h     *Handler
	today engine.Date
	loc   *time.Location
	seq   int
}

func (b *scenarioBuilder) employee(ctx context.Context, id, name, role string) error {
	return b.h.Service.SaveEmployee(ctx, engine.Employee{
		ID:     engine.EmployeeID(id),
		Name:   name,
		Role:   role,
		Active: true,
	})
}

// at returns noon on the given day in the service location.
func (b *scenarioBuilder) at(day engine.Date) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, b.loc)
}

// daysThisMonth returns the current month's days up to today.
func (b *scenarioBuilder) daysThisMonth() []engine.Date {
	var days []engine.Date
	for d := b.today.Period().Start(); !d.After(b.today); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// spread records total as perDay sales on each of days. The last sale
// absorbs the rounding remainder so the sum is exactly total.
func (b *scenarioBuilder) spread(employeeID string, days []engine.Date, total int64, perDay int) []engine.SaleRecord {
	if len(days) == 0 || perDay <= 0 {
		return nil
	}
	count := int64(len(days) * perDay)
	amount := decimal.NewFromInt(total).Div(decimal.NewFromInt(count)).RoundDown(2)
	remainder := decimal.NewFromInt(total).Sub(amount.Mul(decimal.NewFromInt(count)))

	var sales []engine.SaleRecord
	for _, d := range days {
		for i := 0; i < perDay; i++ {
			b.seq++
			sales = append(sales, engine.SaleRecord{
				ID:         fmt.Sprintf("demo-sale-%05d", b.seq),
				EmployeeID: engine.EmployeeID(employeeID),
				Amount:     amount,
				At:         b.at(d).Add(time.Duration(i) * time.Minute),
			})
		}
	}
	last := len(sales) - 1
	sales[last].Amount = sales[last].Amount.Add(remainder)
	return sales
}

func (b *scenarioBuilder) returned(employeeID string, day engine.Date, amount int64) engine.ReturnRecord {
	b.seq++
	return engine.ReturnRecord{
		ID:         fmt.Sprintf("demo-return-%05d", b.seq),
		EmployeeID: engine.EmployeeID(employeeID),
		Amount:     decimal.NewFromInt(amount),
		At:         b.at(day).Add(3 * time.Hour),
	}
}

func (b *scenarioBuilder) ingest(ctx context.Context, sales []engine.SaleRecord, returns []engine.ReturnRecord) error {
	if len(sales) > 0 {
		if _, err := b.h.Service.IngestSales(ctx, sales); err != nil {
			return err
		}
	}
	if len(returns) > 0 {
		if _, err := b.h.Service.IngestReturns(ctx, returns); err != nil {
			return err
		}
	}
	return nil
}

func monthDays(p engine.Period) []engine.Date {
	var days []engine.Date
	for d := p.Start(); !d.After(p.End()); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadTierShowcaseScenario(ctx context.Context, b *scenarioBuilder) error {
	team := []struct {
		id, name string
		total    int64
	}{
		{"emp-001", "Alice Johnson", 2_500_000}, // top band, fully paid: 145,000 bonus
		{"emp-002", "Bob Smith", 1_450_000},     // second band
		{"emp-003", "Carol White", 600_000},     // first band
	}
	days := b.daysThisMonth()

	var sales []engine.SaleRecord
	for _, m := range team {
		if err := b.employee(ctx, m.id, m.name, "seller"); err != nil {
			return err
		}
		sales = append(sales, b.spread(m.id, days, m.total, 2)...)
	}
	return b.ingest(ctx, sales, nil)
}

func loadStreaksScenario(ctx context.Context, b *scenarioBuilder) error {
	if err := b.employee(ctx, "emp-001", "Dana Lee", "seller"); err != nil {
		return err
	}
	if err := b.employee(ctx, "emp-002", "Evan Park", "seller"); err != nil {
		return err
	}

	days := b.daysThisMonth()
	sales := b.spread("emp-001", days, 900_000, 1)

	// Evan sold every day until three days ago
	sales = append(sales, b.spread("emp-002", brokenDays(days, b.today.AddDays(-3)), 700_000, 1)...)
	return b.ingest(ctx, sales, nil)
}

// brokenDays returns days up to and including last.
func brokenDays(days []engine.Date, last engine.Date) []engine.Date {
	var out []engine.Date
	for _, d := range days {
		if d.After(last) {
			break
		}
		out = append(out, d)
	}
	return out
}

func loadComebackScenario(ctx context.Context, b *scenarioBuilder) error {
	team := []struct {
		id, name   string
		last, this int64
	}{
		{"emp-001", "Frank Moore", 2_000_000, 800_000},
		{"emp-002", "Grace Kim", 1_800_000, 700_000},
		{"emp-003", "Henry Adams", 1_500_000, 600_000},
		{"emp-004", "Ivy Chen", 300_000, 1_900_000}, // last place last month
	}

	prev := b.today.Period().Previous()
	prevDays := monthDays(prev)
	days := b.daysThisMonth()

	var sales []engine.SaleRecord
	for _, m := range team {
		if err := b.employee(ctx, m.id, m.name, "seller"); err != nil {
			return err
		}
		sales = append(sales, b.spread(m.id, prevDays, m.last, 1)...)
		sales = append(sales, b.spread(m.id, days, m.this, 1)...)
	}
	if err := b.ingest(ctx, sales, nil); err != nil {
		return err
	}

	// Persist last month's ranking so this month compares against it
	_, err := b.h.Service.RecalculatePeriod(ctx, prev, prev.End())
	return err
}

func loadFullTeamScenario(ctx context.Context, b *scenarioBuilder) error {
	team := []struct {
		id, name, role string
		last, this     int64
		perDay         int
	}{
		{"emp-001", "Alice Johnson", "senior_seller", 2_600_000, 2_900_000, 3},
		{"emp-002", "Bob Smith", "seller", 1_900_000, 1_200_000, 2},
		{"emp-003", "Carol White", "seller", 1_100_000, 2_100_000, 2},
		{"emp-004", "Dana Lee", "seller", 900_000, 950_000, 1},
		{"emp-005", "Evan Park", "seller", 400_000, 1_300_000, 1},
		{"emp-006", "Frank Moore", "senior_seller", 1_500_000, 600_000, 1},
	}

	prev := b.today.Period().Previous()
	prevDays := monthDays(prev)
	days := b.daysThisMonth()

	var sales []engine.SaleRecord
	for _, m := range team {
		if err := b.employee(ctx, m.id, m.name, m.role); err != nil {
			return err
		}
		sales = append(sales, b.spread(m.id, prevDays, m.last, m.perDay)...)
		sales = append(sales, b.spread(m.id, days, m.this, m.perDay)...)
	}

	returns := []engine.ReturnRecord{
		b.returned("emp-002", prev.Start().AddDays(9), 45_000),
		b.returned("emp-006", b.today, 30_000),
	}
	if err := b.ingest(ctx, sales, returns); err != nil {
		return err
	}

	_, err := b.h.Service.RecalculatePeriod(ctx, prev, prev.End())
	return err
}
