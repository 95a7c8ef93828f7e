// Package pipeline wires the learning loop steps into recalc and report-only runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/learnloop/internal/bucket"
	"github.com/TobiSchelling/learnloop/internal/learnings"
	"github.com/TobiSchelling/learnloop/internal/metrics"
	"github.com/TobiSchelling/learnloop/internal/normalize"
	"github.com/TobiSchelling/learnloop/internal/report"
	"github.com/TobiSchelling/learnloop/internal/tabular"
)

const totalSteps = 5

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a run.
type Result struct {
	Date  time.Time
	Steps []StepResult

	// Empty is set when there was no activity to learn from; Message says why.
	Empty   bool
	Message string

	Activities int
	Buckets    *bucket.Aggregator
	Report     *report.Report
	Summary    learnings.Summary
	Saved      bool
}

// Options configures a pipeline.
type Options struct {
	ActivitiesPath  string
	Store           learnings.Store
	Metrics         *metrics.Manager
	MetricsTextfile string
	// Today overrides the run date; zero means the current local date.
	Today time.Time
	// NewID overrides learning_id generation.
	NewID func() string
}

// Pipeline runs the learning loop: load, normalize + aggregate, score,
// reconcile, save.
type Pipeline struct {
	opts Options
}

// New creates a new pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

func (p *Pipeline) today() time.Time {
	if !p.opts.Today.IsZero() {
		return p.opts.Today
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Report computes statistics and the report without touching the store.
// Bucket metrics are still recorded when a metrics manager is configured.
func (p *Pipeline) Report(ctx context.Context) (*Result, error) {
	r := &Result{Date: p.today()}
	if err := p.analyze(ctx, r); err != nil || r.Empty {
		return r, err
	}
	r.Steps = append(r.Steps, StepResult{Name: "Reconcile", Summary: "[report-only] learning store not loaded"})
	return r, nil
}

// Recalc computes statistics and upserts them into the learning store. An
// error from loading or saving the store aborts the run before any write.
func (p *Pipeline) Recalc(ctx context.Context) (*Result, error) {
	r := &Result{Date: p.today()}
	if err := p.analyze(ctx, r); err != nil || r.Empty {
		return r, err
	}
	if p.opts.Store == nil {
		return r, errors.New("no learning store configured")
	}

	log.Printf("Step 4/%d: Reconciling learnings...", totalSteps)
	existing, err := p.opts.Store.Load()
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Reconcile", Err: err})
		return r, fmt.Errorf("loading learnings: %w", err)
	}
	rc := learnings.NewReconciler(r.Date)
	if p.opts.NewID != nil {
		rc.NewID = p.opts.NewID
	}
	updated, sum := rc.Reconcile(existing, r.Buckets)
	r.Summary = sum
	r.Steps = append(r.Steps, StepResult{
		Name:    "Reconcile",
		Summary: fmt.Sprintf("%d inserted, %d updated, %d untouched", sum.Inserted, sum.Updated, sum.Untouched),
	})

	if err := ctx.Err(); err != nil {
		return r, err
	}

	log.Printf("Step 5/%d: Saving learnings...", totalSteps)
	if err := p.opts.Store.Save(updated); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Save", Err: err})
		return r, fmt.Errorf("saving learnings: %w", err)
	}
	r.Saved = true
	r.Steps = append(r.Steps, StepResult{
		Name:    "Save",
		Summary: fmt.Sprintf("Total learnings: %d", sum.Total),
	})

	if p.opts.Metrics != nil {
		p.opts.Metrics.ObserveReconcile(sum, time.Now())
		if err := p.opts.Metrics.WriteTextfile(p.opts.MetricsTextfile); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return r, nil
}

// analyze runs steps 1-3 shared by both modes.
func (p *Pipeline) analyze(ctx context.Context, r *Result) error {
	log.Printf("Step 1/%d: Loading activities...", totalSteps)
	rows, err := tabular.ReadActivities(p.opts.ActivitiesPath)
	if errors.Is(err, tabular.ErrNoActivities) {
		r.Empty = true
		r.Message = fmt.Sprintf("No activities file yet: %s\nStart logging outreach activities to build learnings.", p.opts.ActivitiesPath)
		r.Steps = append(r.Steps, StepResult{Name: "Load", Summary: "activity log not found"})
		return nil
	}
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Load", Err: err})
		return err
	}
	if len(rows) == 0 {
		r.Empty = true
		r.Message = "No activities found. Nothing to do."
		r.Steps = append(r.Steps, StepResult{Name: "Load", Summary: "activity log is empty"})
		return nil
	}
	r.Activities = len(rows)
	r.Steps = append(r.Steps, StepResult{Name: "Load", Summary: fmt.Sprintf("Read %d activities", len(rows))})

	if err := ctx.Err(); err != nil {
		return err
	}

	log.Printf("Step 2/%d: Normalizing and aggregating...", totalSteps)
	agg := bucket.New()
	for _, row := range rows {
		agg.Add(normalize.Normalize(row))
	}
	r.Buckets = agg
	r.Steps = append(r.Steps, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("%d buckets across %d audiences", agg.Len(), len(agg.Audiences())),
	})

	log.Printf("Step 3/%d: Scoring salience...", totalSteps)
	r.Report = report.Build(agg, r.Date)
	if p.opts.Metrics != nil {
		p.opts.Metrics.ObserveBuckets(agg, len(rows), r.Date)
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Score",
		Summary: fmt.Sprintf("Scored %d hooks overall", len(r.Report.Overall.Rows)),
	})
	return nil
}
