package stats

import (
	"sort"
	"time"
	"unicode/utf8"

	"falcaoProAPI/internal/types/activity"
)

// DelayProfitEntry is profit the user reports outside any activity.
type DelayProfitEntry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Amount    float64   `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type AddDelayProfitRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// Point is one completed activity on the results chart.
type Point struct {
	Date       string  `json:"date"`
	Activity   string  `json:"activity"`
	Profit     float64 `json:"profit"`
	Cumulative float64 `json:"cumulative"`
}

type Summary struct {
	Total          int                 `json:"total"`
	Completed      int                 `json:"completed"`
	Missed         int                 `json:"missed"`
	ActivityProfit float64             `json:"activityProfit"`
	DelayProfit    float64             `json:"delayProfit"`
	TotalProfit    float64             `json:"totalProfit"`
	AverageProfit  float64             `json:"averageProfit"`
	SuccessRate    float64             `json:"successRate"`
	PotentialLost  float64             `json:"potentialLost"`
	Series         []Point             `json:"series"`
	DelayEntries   []*DelayProfitEntry `json:"delayEntries"`
}

const chartTitleLen = 20

// Compute aggregates a user's feed. Only activities with a non-zero
// recorded outcome count toward the average; every non-completed activity
// counts its potential profit as lost.
func Compute(activities []*activity.Activity, delay []*DelayProfitEntry, loc *time.Location) *Summary {
	if loc == nil {
		loc = time.UTC
	}

	s := &Summary{
		Total:        len(activities),
		Series:       []Point{},
		DelayEntries: delay,
	}
	if s.DelayEntries == nil {
		s.DelayEntries = []*DelayProfitEntry{}
	}

	withOutcome := 0
	var completed []*activity.Activity
	for _, a := range activities {
		if a.Profit != nil {
			s.ActivityProfit += *a.Profit
		}
		if a.Completed {
			s.Completed++
			completed = append(completed, a)
			if a.Profit != nil && *a.Profit != 0 {
				withOutcome++
			}
		} else {
			s.Missed++
			s.PotentialLost += a.PotentialProfit
		}
	}

	for _, e := range delay {
		s.DelayProfit += e.Amount
	}
	s.TotalProfit = s.ActivityProfit + s.DelayProfit

	if withOutcome > 0 {
		s.AverageProfit = s.ActivityProfit / float64(withOutcome)
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Completed) / float64(s.Total) * 100
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CreatedAt.Before(completed[j].CreatedAt)
	})

	var cumulative float64
	for _, a := range completed {
		var p float64
		if a.Profit != nil {
			p = *a.Profit
		}
		cumulative += p
		s.Series = append(s.Series, Point{
			Date:       a.CreatedAt.In(loc).Format("02/01"),
			Activity:   truncate(a.Title, chartTitleLen),
			Profit:     p,
			Cumulative: cumulative,
		})
	}

	return s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
