// Package bucket folds normalized activities into per (hook, audience)
// statistics.
package bucket

import (
	"time"

	"github.com/TobiSchelling/learnloop/internal/normalize"
	"github.com/TobiSchelling/learnloop/internal/salience"
)

// Key identifies a bucket.
type Key struct {
	Hook     normalize.HookType
	Audience normalize.AudienceSegment
}

// Stats is the running statistics of one bucket.
type Stats struct {
	N         int
	SumDelta  float64
	LastDate  *time.Time
	Responses map[normalize.ResponseQuality]int
}

func newStats() *Stats {
	return &Stats{Responses: make(map[normalize.ResponseQuality]int)}
}

// AvgDelta is SumDelta / N, or 0 for an empty bucket.
func (s *Stats) AvgDelta() float64 {
	if s.N == 0 {
		return 0
	}
	return s.SumDelta / float64(s.N)
}

// ResponseRate is the share of meeting and positive outcomes.
func (s *Stats) ResponseRate() float64 {
	if s.N == 0 {
		return 0
	}
	return float64(s.Responses[normalize.Meeting]+s.Responses[normalize.Positive]) / float64(s.N)
}

// Salience scores the bucket as of today.
func (s *Stats) Salience(today time.Time) float64 {
	return salience.Score(s.AvgDelta(), s.LastDate, today)
}

func (s *Stats) add(a normalize.Activity, w float64) {
	s.N++
	s.SumDelta += w
	s.Responses[a.Response]++
	if a.Date != nil && (s.LastDate == nil || a.Date.After(*s.LastDate)) {
		d := *a.Date
		s.LastDate = &d
	}
}

// Aggregator accumulates bucket statistics. The zero value is not usable;
// call New.
type Aggregator struct {
	stats map[Key]*Stats
	order []Key
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{stats: make(map[Key]*Stats)}
}

// Aggregate folds all activities into a fresh aggregator.
func Aggregate(acts []normalize.Activity) *Aggregator {
	agg := New()
	for _, a := range acts {
		agg.Add(a)
	}
	return agg
}

// Add records one activity in its own bucket and in the (hook, all) bucket.
func (a *Aggregator) Add(act normalize.Activity) {
	w := salience.Weight(act.Response)
	a.bucket(Key{Hook: act.Hook, Audience: act.Audience}).add(act, w)
	a.bucket(Key{Hook: act.Hook, Audience: normalize.AllAudiences}).add(act, w)
}

func (a *Aggregator) bucket(k Key) *Stats {
	s, ok := a.stats[k]
	if !ok {
		s = newStats()
		a.stats[k] = s
		a.order = append(a.order, k)
	}
	return s
}

// Get returns the stats for k, or nil if no activity touched it.
func (a *Aggregator) Get(k Key) *Stats {
	return a.stats[k]
}

// Keys returns observed keys in first-seen order.
func (a *Aggregator) Keys() []Key {
	out := make([]Key, len(a.order))
	copy(out, a.order)
	return out
}

// Len is the number of observed buckets.
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Audiences returns the distinct real audiences observed, in first-seen order.
func (a *Aggregator) Audiences() []normalize.AudienceSegment {
	seen := make(map[normalize.AudienceSegment]bool)
	var out []normalize.AudienceSegment
	for _, k := range a.order {
		if k.Audience == normalize.AllAudiences || seen[k.Audience] {
			continue
		}
		seen[k.Audience] = true
		out = append(out, k.Audience)
	}
	return out
}
