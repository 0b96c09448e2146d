package engine_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sales-engine/engine"
)

func TestParsePeriod(t *testing.T) {
	p, err := engine.ParsePeriod("2024-02")
	require.NoError(t, err)
	assert.Equal(t, engine.NewPeriod(2024, time.February), p)
	assert.Equal(t, "2024-02-29", p.End().String())
	assert.Equal(t, "2024-02", p.String())

	_, err = engine.ParsePeriod("2024-13")
	assert.ErrorIs(t, err, engine.ErrInvalidPeriod)
	_, err = engine.ParsePeriod("June")
	assert.ErrorIs(t, err, engine.ErrInvalidPeriod)
}

func TestPeriod_Navigation(t *testing.T) {
	jan := engine.NewPeriod(2025, time.January)

	assert.Equal(t, engine.NewPeriod(2024, time.December), jan.Previous())
	assert.Equal(t, engine.NewPeriod(2025, time.February), jan.Next())
	assert.True(t, jan.Previous().Before(jan))
	assert.False(t, jan.Before(jan))
	assert.True(t, jan.Contains(date("2025-01-31")))
	assert.False(t, jan.Contains(date("2025-02-01")))
}

func TestPeriodsBetween(t *testing.T) {
	got := engine.PeriodsBetween(engine.NewPeriod(2024, time.November), engine.NewPeriod(2025, time.February))

	require.Len(t, got, 4)
	assert.Equal(t, "2024-11", got[0].String())
	assert.Equal(t, "2025-02", got[3].String())

	assert.Empty(t, engine.PeriodsBetween(engine.NewPeriod(2025, time.March), engine.NewPeriod(2025, time.February)))
}

func TestPeriodAndDate_JSON(t *testing.T) {
	payload := struct {
		Period engine.Period `json:"period"`
		Day    engine.Date   `json:"day"`
	}{engine.NewPeriod(2024, time.June), date("2024-06-05")}

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2024-06","day":"2024-06-05"}`, string(b))

	var back struct {
		Period engine.Period `json:"period"`
		Day    engine.Date   `json:"day"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, payload.Period, back.Period)
	assert.True(t, payload.Day.Equal(back.Day))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	at := time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-06-30", engine.DateOf(at, loc).String())
	assert.Equal(t, "2024-07-01", engine.DateOf(at, nil).String())
	assert.Equal(t, 3, engine.DaysBetween(date("2024-06-29"), date("2024-07-02")))
}
