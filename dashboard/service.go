/*
service.go - Staff dashboard service: fetch, evaluate, persist

PURPOSE:
  Wraps the pure engine with the I/O around it. The engine only sees
  in-memory inputs; this service loads them from the store, runs one
  period evaluation, and writes the ranking and new achievements back.

RECALCULATION FLOW:
  1. Load employees and the period's sales and returns
  2. Aggregate into per-employee stats (calendar days in the service location)
  3. Attach prior-period figures and the stored previous ranking
  4. Attach each employee's personal best day before the period
  5. Load already-earned achievement codes
  6. engine.EvaluatePeriod
  7. ReplacePeriod + AppendEarned (one transaction when the store supports it)

IDEMPOTENCE:
  Re-running a period overwrites its ranking and finds every achievement
  already earned, so the second run writes nothing new.

REFERENCE DATE:
  Streaks need "today". For a closed period the reference is capped at the
  period's last day, so a past month shows the streak it ended with.

CACHING:
  Leaderboards are cached per period. Ingesting records or recalculating a
  period deletes the affected keys.
*/
package dashboard

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/sales-engine/cache"
	"github.com/warp/sales-engine/engine"
)

const leaderboardTTL = 15 * time.Minute

// Service serves dashboard reads and period recalculation.
type Service struct {
	engine  *engine.Engine
	store   engine.Store
	txStore engine.TxStore // nil when the store has no transactions
	cache   cache.Cache
	loc     *time.Location
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables leaderboard caching.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the clock used for defaults and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(eng *engine.Engine, store engine.Store, opts ...Option) *Service {
	s := &Service{
		engine: eng,
		store:  store,
		cache:  cache.Noop{},
		loc:    time.UTC,
		now:    time.Now,
	}
	if ts, ok := store.(engine.TxStore); ok {
		s.txStore = ts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Engine() *engine.Engine   { return s.engine }
func (s *Service) Store() engine.Store      { return s.store }
func (s *Service) Location() *time.Location { return s.loc }

// Today returns the current calendar day in the service location.
func (s *Service) Today() engine.Date {
	return engine.DateOf(s.now(), s.loc)
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Row is one employee's line on the leaderboard.
type Row struct {
	Employee     engine.Employee
	Entry        engine.RankingEntry
	Stats        engine.EmployeePeriodStats
	Commission   engine.CommissionResult
	Power        engine.PowerRating
	Achievements []engine.NewAchievement // earned by this evaluation
}

// Leaderboard is a full period evaluation joined with employee records.
type Leaderboard struct {
	Period             engine.Period
	Reference          engine.Date
	CalculatedAt       time.Time
	DepartmentAvgCheck decimal.Decimal
	Rows               []Row // in rank order
}

// Row returns the employee's row, or false when they are not on the board.
func (lb *Leaderboard) Row(id engine.EmployeeID) (Row, bool) {
	for _, r := range lb.Rows {
		if r.Employee.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// RecalcResult summarizes one persisted recalculation.
type RecalcResult struct {
	Leaderboard     *Leaderboard
	RankedEmployees int
	NewAchievements []engine.EarnedAchievement
}

// =============================================================================
// RECALCULATION
// =============================================================================

// RecalculatePeriod evaluates period and persists its ranking and newly
// earned achievements. A zero today means the current day.
func (s *Service) RecalculatePeriod(ctx context.Context, period engine.Period, today engine.Date) (*RecalcResult, error) {
	lb, eval, err := s.evaluate(ctx, period, today)
	if err != nil {
		return nil, err
	}

	earned := eval.Earned()
	for i := range earned {
		earned[i].ID = uuid.NewString()
	}

	persist := func(st engine.Store) error {
		if err := st.ReplacePeriod(ctx, period, eval.Entries()); err != nil {
			return fmt.Errorf("failed to replace ranking for %s: %w", period, err)
		}
		if len(earned) > 0 {
			if err := st.AppendEarned(ctx, earned); err != nil {
				return fmt.Errorf("failed to record achievements for %s: %w", period, err)
			}
		}
		return nil
	}

	if s.txStore != nil {
		err = s.txStore.WithTx(ctx, persist)
	} else {
		err = persist(s.store)
	}
	if err != nil {
		return nil, err
	}

	// The next period compares against this ranking, so both keys go.
	s.invalidate(ctx, period, period.Next())

	return &RecalcResult{
		Leaderboard:     lb,
		RankedEmployees: len(lb.Rows),
		NewAchievements: earned,
	}, nil
}

// Leaderboard returns the evaluated period without persisting anything.
// Served from cache when available.
func (s *Service) Leaderboard(ctx context.Context, period engine.Period, today engine.Date) (*Leaderboard, error) {
	key := cache.LeaderboardKey(period.String())
	useCache := today.IsZero()

	if useCache {
		var cached Leaderboard
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Printf("[Dashboard] cache error on %s, recomputing: %v", key, err)
		} else if ok {
			return &cached, nil
		}
	}

	lb, _, err := s.evaluate(ctx, period, today)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := s.cache.Set(ctx, key, lb, leaderboardTTL); err != nil {
			log.Printf("[Dashboard] failed to cache leaderboard %s: %v", period, err)
		}
	}
	return lb, nil
}

// evaluate fetches everything the engine needs for period and runs it.
func (s *Service) evaluate(ctx context.Context, period engine.Period, today engine.Date) (*Leaderboard, engine.PeriodEvaluation, error) {
	reference := s.referenceDate(period, today)

	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, engine.PeriodEvaluation{}, fmt.Errorf("failed to list employees: %w", err)
	}

	stats, err := s.periodStats(ctx, period, employees)
	if err != nil {
		return nil, engine.PeriodEvaluation{}, err
	}

	prev := period.Previous()
	prevStats, err := s.periodStats(ctx, prev, employees)
	if err != nil {
		return nil, engine.PeriodEvaluation{}, err
	}
	prevEntries, err := s.store.LoadPeriod(ctx, prev)
	if err != nil {
		return nil, engine.PeriodEvaluation{}, fmt.Errorf("failed to load ranking for %s: %w", prev, err)
	}
	prevRanks := engine.RanksByEmployee(prevEntries)
	engine.AttachPrior(stats, prevStats, prevRanks)

	alreadyEarned := make(map[engine.EmployeeID]map[string]bool, len(stats))
	for i := range stats {
		id := stats[i].EmployeeID
		best, err := s.store.BestDayBefore(ctx, id, period.Start())
		if err != nil {
			return nil, engine.PeriodEvaluation{}, fmt.Errorf("failed to load best day for %s: %w", id, err)
		}
		stats[i].PersonalBestDay = best

		codes, err := s.store.EarnedCodes(ctx, id, period)
		if err != nil {
			return nil, engine.PeriodEvaluation{}, fmt.Errorf("failed to load achievements for %s: %w", id, err)
		}
		alreadyEarned[id] = codes
	}

	now := s.now()
	eval, err := s.engine.EvaluatePeriod(engine.PeriodInput{
		Period:        period,
		Today:         reference,
		EvaluatedAt:   now,
		Stats:         stats,
		PreviousRanks: prevRanks,
		AlreadyEarned: alreadyEarned,
	})
	if err != nil {
		return nil, engine.PeriodEvaluation{}, err
	}

	byID := make(map[engine.EmployeeID]engine.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}

	lb := &Leaderboard{
		Period:             period,
		Reference:          reference,
		CalculatedAt:       now.UTC(),
		DepartmentAvgCheck: eval.DepartmentAvgCheck,
		Rows:               make([]Row, 0, len(eval.Rows)),
	}
	for _, r := range eval.Rows {
		emp, ok := byID[r.Entry.EmployeeID]
		if !ok {
			// Records for an employee the sync layer has not created yet
			emp = engine.Employee{ID: r.Entry.EmployeeID, Name: string(r.Entry.EmployeeID), Role: r.Stats.Role}
		}
		lb.Rows = append(lb.Rows, Row{
			Employee:     emp,
			Entry:        r.Entry,
			Stats:        r.Stats,
			Commission:   r.Commission,
			Power:        r.Power,
			Achievements: r.Achievements,
		})
	}
	return lb, eval, nil
}

func (s *Service) periodStats(ctx context.Context, period engine.Period, employees []engine.Employee) ([]engine.EmployeePeriodStats, error) {
	sales, err := s.store.LoadSales(ctx, period.Start(), period.End())
	if err != nil {
		return nil, fmt.Errorf("failed to load sales for %s: %w", period, err)
	}
	returns, err := s.store.LoadReturns(ctx, period.Start(), period.End())
	if err != nil {
		return nil, fmt.Errorf("failed to load returns for %s: %w", period, err)
	}
	return engine.AggregatePeriod(period, employees, sales, returns, s.loc), nil
}

// referenceDate defaults today to the clock and caps it at the period end.
func (s *Service) referenceDate(period engine.Period, today engine.Date) engine.Date {
	if today.IsZero() {
		today = s.Today()
	}
	if end := period.End(); today.After(end) {
		return end
	}
	return today
}

func (s *Service) invalidate(ctx context.Context, periods ...engine.Period) {
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = cache.LeaderboardKey(p.String())
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("[Dashboard] failed to invalidate %v: %v", keys, err)
	}
}

// =============================================================================
// EMPLOYEE VIEWS
// =============================================================================

// EmployeeDashboard is everything the personal dashboard shows.
type EmployeeDashboard struct {
	Employee           engine.Employee
	Period             engine.Period
	Reference          engine.Date
	Entry              engine.RankingEntry
	Stats              engine.EmployeePeriodStats
	Commission         engine.CommissionResult
	Power              engine.PowerRating
	Streak             engine.StreakResult
	DepartmentAvgCheck decimal.Decimal
	TotalEmployees     int

	// Earned lists achievements already recorded for the period;
	// Pending lists ones this evaluation would award on the next recalculation.
	Earned  []engine.EarnedAchievement
	Pending []engine.NewAchievement
}

// EmployeeDashboard evaluates period and returns one employee's view.
func (s *Service) EmployeeDashboard(ctx context.Context, id engine.EmployeeID, period engine.Period, today engine.Date) (*EmployeeDashboard, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if emp == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrEmployeeNotFound, id)
	}

	lb, err := s.Leaderboard(ctx, period, today)
	if err != nil {
		return nil, err
	}

	earned, err := s.store.ListEarned(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	var earnedInPeriod []engine.EarnedAchievement
	for _, e := range earned {
		if e.Period == period {
			earnedInPeriod = append(earnedInPeriod, e)
		}
	}

	d := &EmployeeDashboard{
		Employee:           *emp,
		Period:             period,
		Reference:          lb.Reference,
		DepartmentAvgCheck: lb.DepartmentAvgCheck,
		TotalEmployees:     len(lb.Rows),
		Earned:             earnedInPeriod,
	}

	row, ok := lb.Row(id)
	if !ok {
		// Inactive employee without records: zero stats, base salary only
		commission, err := s.engine.Commission(emp.Role, decimal.Zero)
		if err != nil {
			return nil, err
		}
		stats := engine.EmployeePeriodStats{EmployeeID: id, Role: emp.Role, Period: period}
		d.Stats = stats
		d.Commission = commission
		d.Power = s.engine.Power(stats, lb.DepartmentAvgCheck)
		d.Entry = engine.RankingEntry{EmployeeID: id, Period: period, IsNew: true}
		return d, nil
	}

	d.Employee = row.Employee
	d.Entry = row.Entry
	d.Stats = row.Stats
	d.Commission = row.Commission
	d.Power = row.Power
	d.Streak = row.Stats.Streak
	d.Pending = row.Achievements
	return d, nil
}

// AchievementStatus is one catalog entry as seen by one employee.
type AchievementStatus struct {
	Definition engine.AchievementDefinition
	Earned     []engine.EarnedAchievement // one per period it was earned in
}

// EmployeeAchievements lists the catalog with the employee's earned records.
// Inactive definitions are shown only when the employee already earned them.
func (s *Service) EmployeeAchievements(ctx context.Context, id engine.EmployeeID) ([]AchievementStatus, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if emp == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrEmployeeNotFound, id)
	}

	earned, err := s.store.ListEarned(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	byCode := make(map[string][]engine.EarnedAchievement)
	for _, e := range earned {
		byCode[e.Code] = append(byCode[e.Code], e)
	}

	var out []AchievementStatus
	for _, def := range s.engine.Config().Catalog {
		records := byCode[def.Code]
		if !def.IsActive && len(records) == 0 {
			continue
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Period.Before(records[j].Period) })
		out = append(out, AchievementStatus{Definition: def, Earned: records})
	}
	return out, nil
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestResult reports which periods received records.
type IngestResult struct {
	Received int // records in the request
	Accepted int // records newly stored; duplicates of known IDs are not counted
	Periods  []engine.Period
}

// IngestSales validates and stores sales. Records whose ID already exists
// are skipped by the store; records without ID get one.
func (s *Service) IngestSales(ctx context.Context, sales []engine.SaleRecord) (*IngestResult, error) {
	periods := make(map[engine.Period]bool)
	for i := range sales {
		if err := s.validateRecord(sales[i].EmployeeID, sales[i].Amount, sales[i].At); err != nil {
			return nil, fmt.Errorf("sale %d: %w", i, err)
		}
		if sales[i].ID == "" {
			sales[i].ID = uuid.NewString()
		}
		periods[engine.PeriodOf(sales[i].At, s.loc)] = true
	}
	inserted, err := s.store.AppendSales(ctx, sales)
	if err != nil {
		return nil, fmt.Errorf("failed to store sales: %w", err)
	}
	return s.afterIngest(ctx, len(sales), inserted, periods), nil
}

// IngestReturns validates and stores returns.
func (s *Service) IngestReturns(ctx context.Context, returns []engine.ReturnRecord) (*IngestResult, error) {
	periods := make(map[engine.Period]bool)
	for i := range returns {
		if err := s.validateRecord(returns[i].EmployeeID, returns[i].Amount, returns[i].At); err != nil {
			return nil, fmt.Errorf("return %d: %w", i, err)
		}
		if returns[i].ID == "" {
			returns[i].ID = uuid.NewString()
		}
		periods[engine.PeriodOf(returns[i].At, s.loc)] = true
	}
	inserted, err := s.store.AppendReturns(ctx, returns)
	if err != nil {
		return nil, fmt.Errorf("failed to store returns: %w", err)
	}
	return s.afterIngest(ctx, len(returns), inserted, periods), nil
}

func (s *Service) validateRecord(employeeID engine.EmployeeID, amount decimal.Decimal, at time.Time) error {
	if employeeID == "" {
		return fmt.Errorf("%w: employee_id is required", engine.ErrInvalidRecord)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", engine.ErrInvalidRecord, amount)
	}
	if at.IsZero() {
		return fmt.Errorf("%w: timestamp is required", engine.ErrInvalidRecord)
	}
	return nil
}

func (s *Service) afterIngest(ctx context.Context, received, accepted int, touched map[engine.Period]bool) *IngestResult {
	result := &IngestResult{Received: received, Accepted: accepted}
	var stale []engine.Period
	for p := range touched {
		result.Periods = append(result.Periods, p)
		stale = append(stale, p, p.Next())
	}
	sort.Slice(result.Periods, func(i, j int) bool { return result.Periods[i].Before(result.Periods[j]) })
	if len(stale) > 0 {
		s.invalidate(ctx, stale...)
	}
	return result
}

// SaveEmployee creates or updates an employee.
func (s *Service) SaveEmployee(ctx context.Context, emp engine.Employee) error {
	if emp.ID == "" {
		return fmt.Errorf("%w: employee id is required", engine.ErrInvalidRecord)
	}
	if emp.Name == "" {
		return fmt.Errorf("%w: employee name is required", engine.ErrInvalidRecord)
	}
	if _, err := s.engine.Schedule(emp.Role); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidRecord, err)
	}
	if err := s.store.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	// Names and roles show on every cached board.
	s.invalidate(ctx, s.Today().Period())
	return nil
}
