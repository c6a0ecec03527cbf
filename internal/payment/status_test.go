package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestEvaluate_NoEndDateIsPending(t *testing.T) {
	s := Evaluate(nil, now)

	assert.Equal(t, StatePending, s.Status)
	assert.False(t, s.IsActive)
	assert.False(t, s.IsInGracePeriod)
	assert.Zero(t, s.DaysRemaining)
	assert.Nil(t, s.SubscriptionEndDate)
}

func TestEvaluate_Boundaries(t *testing.T) {
	tests := []struct {
		name          string
		end           *time.Time
		wantDiff      int
		wantState     State
		wantActive    bool
		wantGrace     bool
		wantRemaining int
	}{
		{"two days ahead", at(48 * time.Hour), 2, StateActive, true, false, 2},
		{"one hour ahead rounds up", at(time.Hour), 1, StateActive, true, false, 1},
		{"thirty days ahead", at(PlanPeriod), 30, StateActive, true, false, 30},
		{"exactly now", at(0), 0, StateGracePeriod, true, true, 3},
		{"twelve hours ago", at(-12 * time.Hour), 0, StateGracePeriod, true, true, 3},
		{"one day ago", at(-24 * time.Hour), -1, StateGracePeriod, true, true, 2},
		{"exactly three days ago", at(-3 * 24 * time.Hour), -3, StateGracePeriod, true, true, 0},
		{"just over three days ago", at(-3*24*time.Hour - time.Hour), -3, StateGracePeriod, true, true, 0},
		{"exactly four days ago", at(-4 * 24 * time.Hour), -4, StateExpired, false, false, 0},
		{"five days ago", at(-5 * 24 * time.Hour), -5, StateExpired, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantDiff, DiffDays(*tt.end, now))

			s := Evaluate(tt.end, now)
			assert.Equal(t, tt.wantState, s.Status)
			assert.Equal(t, tt.wantActive, s.IsActive)
			assert.Equal(t, tt.wantGrace, s.IsInGracePeriod)
			assert.Equal(t, tt.wantRemaining, s.DaysRemaining)
			require.NotNil(t, s.SubscriptionEndDate)
			assert.True(t, tt.end.Equal(*s.SubscriptionEndDate))
		})
	}
}

func TestEvaluate_ActiveDaysRemainingMatchesDiff(t *testing.T) {
	for d := 1; d <= 60; d++ {
		s := Evaluate(at(time.Duration(d)*24*time.Hour), now)
		assert.Equal(t, StateActive, s.Status, "diff %d", d)
		assert.Equal(t, d, s.DaysRemaining, "diff %d", d)
	}
}

func TestEvaluate_GraceWindow(t *testing.T) {
	for d := 0; d >= -GraceDays; d-- {
		s := Evaluate(at(time.Duration(d)*24*time.Hour), now)
		assert.Equal(t, StateGracePeriod, s.Status, "diff %d", d)
		assert.True(t, s.IsActive, "diff %d", d)
		assert.Equal(t, GraceDays+d, s.DaysRemaining, "diff %d", d)
	}
}

func TestEvaluate_ExpiredBeyondGrace(t *testing.T) {
	for d := -4; d >= -40; d-- {
		s := Evaluate(at(time.Duration(d)*24*time.Hour), now)
		assert.Equal(t, StateExpired, s.Status, "diff %d", d)
		assert.False(t, s.IsActive, "diff %d", d)
		assert.Zero(t, s.DaysRemaining, "diff %d", d)
	}
}

func TestEvaluate_DoesNotAliasInput(t *testing.T) {
	end := now.Add(48 * time.Hour)
	s := Evaluate(&end, now)
	end = end.Add(time.Hour)

	assert.True(t, s.SubscriptionEndDate.Equal(now.Add(48*time.Hour)))
}

func TestMessage(t *testing.T) {
	assert.Contains(t, Message(Evaluate(at(-24*time.Hour), now)), "2 dia(s) para renovar")
	assert.Contains(t, Message(Evaluate(at(-5*24*time.Hour), now)), "expirou")
	assert.Contains(t, Message(Evaluate(at(7*24*time.Hour), now)), "vence em 7 dia(s)")
	assert.Empty(t, Message(Evaluate(at(8*24*time.Hour), now)))
	assert.Empty(t, Message(Evaluate(nil, now)))
}
