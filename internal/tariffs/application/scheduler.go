package application

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers refresh cycles on a cron schedule. The schedule is
// a standard 5-field cron expression (minute hour day-of-month month
// day-of-week); the regulator publishes weekly, so the default is
// Sunday 06:00.
type Scheduler struct {
	refresher *Refresher
	schedule  string
	logger    *log.Logger
}

// NewScheduler constructs a scheduler.
func NewScheduler(refresher *Refresher, schedule string, logger *log.Logger) *Scheduler {
	return &Scheduler{refresher: refresher, schedule: schedule, logger: logger}
}

// Start runs the scheduler loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.refresher == nil {
		return
	}
	expr := strings.TrimSpace(s.schedule)
	if expr == "" {
		s.logf("tariff_schedule_disabled")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		s.logf("tariff_schedule_invalid expr=%q err=%v", expr, err)
		return
	}
	s.logf("tariff_schedule_started expr=%q", expr)

	for {
		now := time.Now().UTC()
		next := sched.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.refresher.RunCycle(ctx)
	}
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
