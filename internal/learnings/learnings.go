// Package learnings models the persisted learning records and reconciles them
// with freshly computed bucket statistics.
package learnings

import (
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/learnloop/internal/bucket"
	"github.com/TobiSchelling/learnloop/internal/salience"
)

// KindHook is the only learning type produced today.
const KindHook = "hook"

// Columns is the learning store schema, in file order.
var Columns = []string{
	"learning_id", "type", "audience_segment", "insight",
	"salience", "evidence_count", "created_date", "last_validated",
}

// Record is one persisted learning.
type Record struct {
	LearningID      string
	Type            string
	AudienceSegment string
	Insight         string
	Salience        float64
	EvidenceCount   int
	CreatedDate     string
	LastValidated   string
}

// Identity is the composite key of a learning record.
type Identity struct {
	Type            string
	Insight         string
	AudienceSegment string
}

// ID returns the composite key of r.
func (r Record) ID() Identity {
	return Identity{Type: r.Type, Insight: r.Insight, AudienceSegment: r.AudienceSegment}
}

// Store loads and replaces the whole learning set.
type Store interface {
	Load() ([]Record, error)
	Save(records []Record) error
}

// Summary counts what a reconciliation did.
type Summary struct {
	Inserted  int
	Updated   int
	Untouched int
	Total     int
}

// Reconciler upserts bucket statistics into a learning set.
type Reconciler struct {
	Today time.Time
	NewID func() string
}

// NewReconciler returns a Reconciler stamping records with today and
// generating UUIDv4 identifiers.
func NewReconciler(today time.Time) *Reconciler {
	return &Reconciler{
		Today: today,
		NewID: func() string { return uuid.NewString() },
	}
}

// Reconcile returns the new learning set. Existing rows keep their order;
// rows for new buckets are appended in the aggregator's key order. Buckets
// that were not observed are left as they are.
func (rc *Reconciler) Reconcile(existing []Record, agg *bucket.Aggregator) ([]Record, Summary) {
	out := make([]Record, len(existing))
	copy(out, existing)

	index := make(map[Identity]int, len(out))
	for i, r := range out {
		if _, dup := index[r.ID()]; !dup {
			index[r.ID()] = i
		}
	}

	today := rc.Today.Format(time.DateOnly)
	var sum Summary

	for _, k := range agg.Keys() {
		s := agg.Get(k)
		if s == nil || s.N == 0 {
			continue
		}
		id := Identity{Type: KindHook, Insight: string(k.Hook), AudienceSegment: string(k.Audience)}
		rec := Record{
			Type:            id.Type,
			AudienceSegment: id.AudienceSegment,
			Insight:         id.Insight,
			Salience:        salience.Round4(s.Salience(rc.Today)),
			EvidenceCount:   s.N,
			LastValidated:   today,
		}

		if i, ok := index[id]; ok {
			rec.LearningID = out[i].LearningID
			if rec.LearningID == "" {
				rec.LearningID = rc.NewID()
			}
			rec.CreatedDate = out[i].CreatedDate
			if rec.CreatedDate == "" {
				rec.CreatedDate = today
			}
			out[i] = rec
			sum.Updated++
			continue
		}

		rec.LearningID = rc.NewID()
		rec.CreatedDate = today
		index[id] = len(out)
		out = append(out, rec)
		sum.Inserted++
	}

	sum.Total = len(out)
	sum.Untouched = sum.Total - sum.Inserted - sum.Updated
	return out, sum
}
