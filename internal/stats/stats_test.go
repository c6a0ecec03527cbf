package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"falcaoProAPI/internal/types/activity"
)

func ptr(v float64) *float64 { return &v }

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, nil, nil)

	assert.Zero(t, s.Total)
	assert.Zero(t, s.SuccessRate)
	assert.Zero(t, s.AverageProfit)
	assert.NotNil(t, s.Series)
	assert.NotNil(t, s.DelayEntries)
}

func TestCompute_Aggregates(t *testing.T) {
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	acts := []*activity.Activity{
		{Title: "Cashback method bookmaker X - odd 2.5", PotentialProfit: 250, Completed: true, Profit: ptr(250), CreatedAt: base.Add(2 * time.Hour)},
		{Title: "Tip of the day", PotentialProfit: 180, CreatedAt: base.Add(time.Hour)},
		{Title: "Flash promo", PotentialProfit: 400, Completed: true, Profit: ptr(-100), CreatedAt: base},
		{Title: "Skipped result", PotentialProfit: 50, Completed: true, CreatedAt: base.Add(3 * time.Hour)},
	}
	delay := []*DelayProfitEntry{{Amount: 30}, {Amount: 20}}

	s := Compute(acts, delay, time.UTC)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 1, s.Missed)
	assert.Equal(t, 150.0, s.ActivityProfit)
	assert.Equal(t, 50.0, s.DelayProfit)
	assert.Equal(t, 200.0, s.TotalProfit)
	assert.Equal(t, 75.0, s.AverageProfit)
	assert.Equal(t, 75.0, s.SuccessRate)
	assert.Equal(t, 180.0, s.PotentialLost)

	require.Len(t, s.Series, 3)
	assert.Equal(t, "Flash promo", s.Series[0].Activity)
	assert.Equal(t, -100.0, s.Series[0].Cumulative)
	assert.Equal(t, "Cashback method book...", s.Series[1].Activity)
	assert.Equal(t, 150.0, s.Series[1].Cumulative)
	assert.Equal(t, 150.0, s.Series[2].Cumulative)
	assert.Equal(t, "01/02", s.Series[0].Date)
}
