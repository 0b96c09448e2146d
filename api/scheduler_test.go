package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sales-engine/engine"
)

func TestRecalcScheduler_RunNow(t *testing.T) {
	// GIVEN: A scheduler that has never run
	// WHEN: Running it twice within the same month
	// THEN: The previous month is finalized once, the current month every time

	h, _ := setupTestHandler(t)
	seedTeam(t, h)
	ctx := context.Background()

	rs := NewRecalcScheduler(h.Service)

	done := rs.RunNow(ctx)
	assert.Equal(t, []engine.Period{engine.NewPeriod(2024, time.May), engine.NewPeriod(2024, time.June)}, done)

	done = rs.RunNow(ctx)
	assert.Equal(t, []engine.Period{engine.NewPeriod(2024, time.June)}, done)

	june, err := h.Service.Store().LoadPeriod(ctx, engine.NewPeriod(2024, time.June))
	require.NoError(t, err)
	assert.Len(t, june, 2)
}

func TestRecalcScheduler_NextRunTime(t *testing.T) {
	h, _ := setupTestHandler(t)
	rs := NewRecalcScheduler(h.Service)
	rs.CheckInterval = time.Hour

	before := time.Now()
	assert.False(t, rs.GetNextRunTime().Before(before))

	rs.RunNow(context.Background())
	after := time.Now()

	next := rs.GetNextRunTime()
	assert.False(t, next.Before(before.Add(time.Hour)))
	assert.False(t, next.After(after.Add(time.Hour)))
}

func TestRecalcScheduler_StartStop(t *testing.T) {
	h, _ := setupTestHandler(t)

	disabled := NewRecalcScheduler(h.Service)
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()

	rs := NewRecalcScheduler(h.Service)
	rs.CheckInterval = time.Hour
	rs.Start()
	rs.Stop()
	rs.Stop()
}
