/*
scheduler.go - Automated leaderboard recalculation

PURPOSE:
  Periodically recalculates the current month so rankings and achievements
  follow incoming sales without anyone pressing a button. After a month
  rolls over, the previous month is recalculated once more with its final
  data, so its closing ranking is what next month compares against.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each tick recalculates the current period
  - The first tick in a new month also finalizes the month that just ended
  - Failures are logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to run (default: 15 minutes)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecalcScheduler(service)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RecalculatePeriod endpoint (manual recalculation)
  - dashboard/service.go: RecalculatePeriod
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/sales-engine/dashboard"
	"github.com/warp/sales-engine/engine"
)

// RecalcScheduler handles automated period recalculation.
type RecalcScheduler struct {
	Service       *dashboard.Service
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	runMu     sync.Mutex
	finalized engine.Period // last period recalculated after it closed
	lastRun   time.Time
}

// NewRecalcScheduler creates a new scheduler.
func NewRecalcScheduler(svc *dashboard.Service) *RecalcScheduler {
	return &RecalcScheduler{
		Service:       svc,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RecalcScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RecalcScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RecalcScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())
	log.Printf("[Scheduler] Next run at %s", rs.GetNextRunTime().Format(time.RFC3339))

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
			log.Printf("[Scheduler] Next run at %s", rs.GetNextRunTime().Format(time.RFC3339))
		case <-rs.stop:
			return
		}
	}
}

// RunNow performs one recalculation pass and returns the periods it
// recalculated successfully.
func (rs *RecalcScheduler) RunNow(ctx context.Context) []engine.Period {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	rs.lastRun = time.Now()
	today := rs.Service.Today()
	current := today.Period()
	previous := current.Previous()

	var done []engine.Period

	if rs.finalized != previous {
		if rs.recalc(ctx, previous, previous.End()) {
			rs.finalized = previous
			done = append(done, previous)
		}
	}

	if rs.recalc(ctx, current, today) {
		done = append(done, current)
	}
	return done
}

func (rs *RecalcScheduler) recalc(ctx context.Context, period engine.Period, today engine.Date) bool {
	start := time.Now()
	result, err := rs.Service.RecalculatePeriod(ctx, period, today)
	if err != nil {
		log.Printf("[Scheduler] Error recalculating %s: %v", period, err)
		return false
	}
	log.Printf("[Scheduler] Recalculated %s: %d ranked, %d new achievements (%v)",
		period, result.RankedEmployees, len(result.NewAchievements), time.Since(start).Round(time.Millisecond))
	return true
}

// GetNextRunTime returns when the next scheduled check will occur: one
// interval after the last pass, or now when no pass has run yet.
func (rs *RecalcScheduler) GetNextRunTime() time.Time {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()
	if rs.lastRun.IsZero() {
		return time.Now()
	}
	return rs.lastRun.Add(rs.CheckInterval)
}
