// Package schedule runs a job on a cron expression until cancelled.
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"
)

const stopTimeout = 5 * time.Second

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs Job on a standard five-field cron expression. A tick that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	expr     string
	schedule rcron.Schedule
	job      Job
}

// New parses expr and returns a scheduler for job.
func New(expr string, job Job) (*Scheduler, error) {
	sched, err := rcron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &Scheduler{expr: expr, schedule: sched, job: job}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx is done, then waits for a running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := rcron.PrintfLogger(log.Default())
	c := rcron.New(rcron.WithChain(rcron.Recover(logger), rcron.SkipIfStillRunning(logger)))
	c.Schedule(s.schedule, rcron.FuncJob(func() { s.tick(ctx) }))

	c.Start()
	log.Printf("[schedule] started (%s), next run %s", s.expr, s.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(stopTimeout):
		log.Printf("[schedule] stop timeout waiting for running job")
	}
	log.Printf("[schedule] stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Printf("[schedule] running job")
	if err := s.job(ctx); err != nil {
		log.Printf("[schedule] job error: %v", err)
		return
	}
	log.Printf("[schedule] job done, next run %s", s.Next(time.Now()).Format(time.RFC3339))
}
