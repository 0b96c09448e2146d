// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/sales-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu  sync.RWMutex
	loc *time.Location

	employees map[engine.EmployeeID]engine.Employee
	sales     []engine.SaleRecord
	returns   []engine.ReturnRecord
	recordIDs map[string]bool
	rankings  map[engine.Period][]engine.RankingEntry
	earned    []engine.EarnedAchievement
	earnedKey map[earnedKey]bool
}

type earnedKey struct {
	EmployeeID engine.EmployeeID
	Code       string
	Period     engine.Period
}

// NewMemory creates an empty store. Calendar days are taken in UTC.
func NewMemory() *Memory {
	return NewMemoryIn(time.UTC)
}

// NewMemoryIn creates an empty store that buckets records into days in loc.
func NewMemoryIn(loc *time.Location) *Memory {
	return &Memory{
		loc:       loc,
		employees: make(map[engine.EmployeeID]engine.Employee),
		recordIDs: make(map[string]bool),
		rankings:  make(map[engine.Period][]engine.RankingEntry),
		earnedKey: make(map[earnedKey]bool),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp engine.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]engine.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// SALES
// =============================================================================

func (m *Memory) AppendSales(_ context.Context, sales []engine.SaleRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendSalesLocked(sales), nil
}

func (m *Memory) appendSalesLocked(sales []engine.SaleRecord) int {
	inserted := 0
	for _, s := range sales {
		if m.recordIDs["sale:"+s.ID] {
			continue
		}
		m.recordIDs["sale:"+s.ID] = true
		m.sales = append(m.sales, s)
		inserted++
	}
	return inserted
}

func (m *Memory) AppendReturns(_ context.Context, returns []engine.ReturnRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendReturnsLocked(returns), nil
}

func (m *Memory) appendReturnsLocked(returns []engine.ReturnRecord) int {
	inserted := 0
	for _, r := range returns {
		if m.recordIDs["return:"+r.ID] {
			continue
		}
		m.recordIDs["return:"+r.ID] = true
		m.returns = append(m.returns, r)
		inserted++
	}
	return inserted
}

func (m *Memory) LoadSales(_ context.Context, from, to engine.Date) ([]engine.SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.SaleRecord
	for _, s := range m.sales {
		if m.inRange(s.At, from, to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) LoadReturns(_ context.Context, from, to engine.Date) ([]engine.ReturnRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.ReturnRecord
	for _, r := range m.returns {
		if m.inRange(r.At, from, to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) BestDayBefore(_ context.Context, employeeID engine.EmployeeID, before engine.Date) (*decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bestDayLocked(employeeID, before), nil
}

func (m *Memory) bestDayLocked(employeeID engine.EmployeeID, before engine.Date) *decimal.Decimal {
	daily := make(map[engine.Date]decimal.Decimal)
	for _, s := range m.sales {
		day := engine.DateOf(s.At, m.loc)
		if s.EmployeeID != employeeID || !day.Before(before) {
			continue
		}
		daily[day] = daily[day].Add(s.Amount)
	}
	if len(daily) == 0 {
		return nil
	}
	best := decimal.Zero
	for _, total := range daily {
		if total.GreaterThan(best) {
			best = total
		}
	}
	return &best
}

func (m *Memory) inRange(at time.Time, from, to engine.Date) bool {
	day := engine.DateOf(at, m.loc)
	return day.AfterOrEqual(from) && day.BeforeOrEqual(to)
}

// =============================================================================
// RANKINGS
// =============================================================================

func (m *Memory) ReplacePeriod(_ context.Context, period engine.Period, entries []engine.RankingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceLocked(period, entries)
	return nil
}

func (m *Memory) replaceLocked(period engine.Period, entries []engine.RankingEntry) {
	stored := make([]engine.RankingEntry, len(entries))
	for i, e := range entries {
		e.Period = period
		e.PreviousRank = nil
		e.PositionChange = 0
		e.IsNew = false
		stored[i] = e
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Rank < stored[j].Rank })
	m.rankings[period] = stored
}

func (m *Memory) LoadPeriod(_ context.Context, period engine.Period) ([]engine.RankingEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.RankingEntry, len(m.rankings[period]))
	copy(out, m.rankings[period])
	return out, nil
}

// =============================================================================
// ACHIEVEMENTS (append-only)
// =============================================================================

// AppendEarned adds achievements atomically. Append-only.
func (m *Memory) AppendEarned(_ context.Context, earned []engine.EarnedAchievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEarnedLocked(earned)
}

func (m *Memory) appendEarnedLocked(earned []engine.EarnedAchievement) error {
	// Check all keys first (atomic check)
	batch := make(map[earnedKey]bool, len(earned))
	for _, e := range earned {
		k := earnedKey{EmployeeID: e.EmployeeID, Code: e.Code, Period: e.Period}
		if m.earnedKey[k] || batch[k] {
			return engine.ErrDuplicateAchievement
		}
		batch[k] = true
	}
	for _, e := range earned {
		m.earnedKey[earnedKey{EmployeeID: e.EmployeeID, Code: e.Code, Period: e.Period}] = true
		m.earned = append(m.earned, e)
	}
	return nil
}

func (m *Memory) EarnedCodes(_ context.Context, employeeID engine.EmployeeID, period engine.Period) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := make(map[string]bool)
	for _, e := range m.earned {
		if e.EmployeeID == employeeID && e.Period == period {
			codes[e.Code] = true
		}
	}
	return codes, nil
}

func (m *Memory) ListEarned(_ context.Context, employeeID engine.EmployeeID) ([]engine.EarnedAchievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.EarnedAchievement
	for _, e := range m.earned {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	rankings  map[engine.Period][]engine.RankingEntry
	earned    []engine.EarnedAchievement
	earnedKey map[earnedKey]bool
}

func (m *Memory) snapshot() memorySnapshot {
	rankings := make(map[engine.Period][]engine.RankingEntry, len(m.rankings))
	for k, v := range m.rankings {
		rankings[k] = append([]engine.RankingEntry{}, v...)
	}
	keys := make(map[earnedKey]bool, len(m.earnedKey))
	for k, v := range m.earnedKey {
		keys[k] = v
	}
	return memorySnapshot{
		rankings:  rankings,
		earned:    append([]engine.EarnedAchievement{}, m.earned...),
		earnedKey: keys,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.rankings = s.rankings
	m.earned = s.earned
	m.earnedKey = s.earnedKey
}

// txMemoryView runs against the parent while its lock is already held.
// Only rankings and achievements are rolled back; record and employee
// writes inside a transaction are not expected.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) ReplacePeriod(_ context.Context, period engine.Period, entries []engine.RankingEntry) error {
	tv.parent.replaceLocked(period, entries)
	return nil
}

func (tv *txMemoryView) LoadPeriod(_ context.Context, period engine.Period) ([]engine.RankingEntry, error) {
	return append([]engine.RankingEntry{}, tv.parent.rankings[period]...), nil
}

func (tv *txMemoryView) AppendEarned(_ context.Context, earned []engine.EarnedAchievement) error {
	return tv.parent.appendEarnedLocked(earned)
}

func (tv *txMemoryView) EarnedCodes(_ context.Context, employeeID engine.EmployeeID, period engine.Period) (map[string]bool, error) {
	codes := make(map[string]bool)
	for _, e := range tv.parent.earned {
		if e.EmployeeID == employeeID && e.Period == period {
			codes[e.Code] = true
		}
	}
	return codes, nil
}

func (tv *txMemoryView) ListEarned(_ context.Context, employeeID engine.EmployeeID) ([]engine.EarnedAchievement, error) {
	var out []engine.EarnedAchievement
	for _, e := range tv.parent.earned {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (tv *txMemoryView) SaveEmployee(_ context.Context, emp engine.Employee) error {
	tv.parent.employees[emp.ID] = emp
	return nil
}

func (tv *txMemoryView) GetEmployee(_ context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	emp, ok := tv.parent.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (tv *txMemoryView) ListEmployees(_ context.Context) ([]engine.Employee, error) {
	out := make([]engine.Employee, 0, len(tv.parent.employees))
	for _, e := range tv.parent.employees {
		out = append(out, e)
	}
	return out, nil
}

func (tv *txMemoryView) AppendSales(_ context.Context, sales []engine.SaleRecord) (int, error) {
	return tv.parent.appendSalesLocked(sales), nil
}

func (tv *txMemoryView) AppendReturns(_ context.Context, returns []engine.ReturnRecord) (int, error) {
	return tv.parent.appendReturnsLocked(returns), nil
}

func (tv *txMemoryView) LoadSales(_ context.Context, from, to engine.Date) ([]engine.SaleRecord, error) {
	var out []engine.SaleRecord
	for _, s := range tv.parent.sales {
		if tv.parent.inRange(s.At, from, to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (tv *txMemoryView) LoadReturns(_ context.Context, from, to engine.Date) ([]engine.ReturnRecord, error) {
	var out []engine.ReturnRecord
	for _, r := range tv.parent.returns {
		if tv.parent.inRange(r.At, from, to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (tv *txMemoryView) BestDayBefore(_ context.Context, employeeID engine.EmployeeID, before engine.Date) (*decimal.Decimal, error) {
	return tv.parent.bestDayLocked(employeeID, before), nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := NewMemoryIn(m.loc)
	m.employees = fresh.employees
	m.sales = nil
	m.returns = nil
	m.recordIDs = fresh.recordIDs
	m.rankings = fresh.rankings
	m.earned = nil
	m.earnedKey = fresh.earnedKey
	return nil
}
