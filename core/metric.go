package core

import "time"

// AnalystMetric is a per-analyst, per-calendar-day performance rollup. One
// row exists per (analyst, day); counters only ever increase within a day.
type AnalystMetric struct {
	ID                   string    `json:"id"`
	AnalystID            string    `json:"analyst_id"`
	Date                 time.Time `json:"date" swaggertype:"string"`
	AlertsProcessed      int       `json:"alerts_processed"`
	TruePositives        int       `json:"true_positives"`
	FalsePositives       int       `json:"false_positives"`
	Escalations          int       `json:"escalations"`
	AvgResolutionTimeMin float64   `json:"avg_resolution_time_min"`
}

// MetricDay truncates a moment to local midnight, the calendar-day key for
// analyst metrics.
func MetricDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// MetricDelta describes the contribution of one investigation submission to
// the analyst's daily rollup. Exactly one of the conclusion counters is 1
// when the conclusion falls in a counted category, all are 0 otherwise.
type MetricDelta struct {
	TruePositives  int
	FalsePositives int
	Escalations    int
	// TimeSpentMin seeds AvgResolutionTimeMin when the delta creates the
	// day's row; the increment path leaves the stored average untouched.
	TimeSpentMin float64
}

// DeltaForSubmission builds the metric contribution for a submission with
// the given conclusion and time spent.
func DeltaForSubmission(conclusion Conclusion, timeSpentMinutes int) MetricDelta {
	if timeSpentMinutes < 0 {
		timeSpentMinutes = 0
	}
	d := MetricDelta{TimeSpentMin: float64(timeSpentMinutes)}
	switch conclusion {
	case ConclusionTruePositive:
		d.TruePositives = 1
	case ConclusionFalsePositive:
		d.FalsePositives = 1
	case ConclusionNeedsEscalation:
		d.Escalations = 1
	}
	return d
}

// LeaderboardEntry is a weekly rollup row for the dashboard leaderboard.
type LeaderboardEntry struct {
	Analyst         *UserSummary `json:"analyst,omitempty"`
	AnalystID       string       `json:"analyst_id"`
	AlertsProcessed int          `json:"alerts_processed"`
	TruePositives   int          `json:"true_positives"`
	FalsePositives  int          `json:"false_positives"`
}
