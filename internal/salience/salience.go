// Package salience turns outcome weights and recency into a bounded score.
package salience

import (
	"math"
	"strconv"
	"time"

	"github.com/TobiSchelling/learnloop/internal/normalize"
)

const (
	// Baseline is the score of a bucket with neutral evidence and no decay.
	Baseline = 0.5
	// DecayPerWeek is subtracted for every week since the last activity.
	DecayPerWeek = 0.02
)

// Weights maps each response quality to its contribution.
var Weights = map[normalize.ResponseQuality]float64{
	normalize.Meeting:  0.30,
	normalize.Positive: 0.20,
	normalize.Neutral:  0.10,
	normalize.NoReply:  -0.05,
	normalize.Negative: -0.10,
}

// Weight returns the weight of rq, 0 for unknown values.
func Weight(rq normalize.ResponseQuality) float64 {
	return Weights[rq]
}

// Clamp01 saturates x to [0, 1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// WeeksSince returns the non-negative number of weeks between last and
// today, or 0 when last is nil.
func WeeksSince(last *time.Time, today time.Time) float64 {
	if last == nil {
		return 0
	}
	days := DaysBetween(*last, today)
	return math.Max(0, float64(days)/7.0)
}

// DaysBetween counts calendar days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Score computes clamp01(Baseline + avgDelta - DecayPerWeek * weeks).
func Score(avgDelta float64, last *time.Time, today time.Time) float64 {
	return Clamp01(Baseline + avgDelta - DecayPerWeek*WeeksSince(last, today))
}

// Round4 rounds a score to the 4 decimals stored in the learning store. It
// rounds the exact decimal value of x, so 0.00035 (stored just below the
// half) becomes 0.0003.
func Round4(x float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 4, 64), 64)
	if err != nil {
		return x
	}
	return v
}
