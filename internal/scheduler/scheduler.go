package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobdigest/internal/model"
)

// DefaultSpec fires at 08:00 on weekdays.
const DefaultSpec = "0 8 * * 1-5"

// RunFunc performs one stateless digest run.
type RunFunc func(ctx context.Context) error

// Scheduler owns the daemon loop: it sleeps until the next cron tick and
// invokes the run function.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	loc      *time.Location
	run      RunFunc
	now      func() time.Time
	logger   *slog.Logger
}

// NewScheduler parses a standard five-field cron expression evaluated in loc.
func NewScheduler(spec string, loc *time.Location, run RunFunc, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %w", model.ErrConfig, spec, err)
	}
	return newScheduler(spec, schedule, loc, run, logger), nil
}

func newScheduler(spec string, schedule cron.Schedule, loc *time.Location, run RunFunc, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		spec:     spec,
		schedule: schedule,
		loc:      loc,
		run:      run,
		now:      time.Now,
		logger:   logger,
	}
}

// Next returns the first tick strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Run waits for each tick and runs once per tick. A failed run is logged
// and the loop continues. It returns nil when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"schedule", s.spec,
		"timezone", s.loc.String(),
	)

	for {
		next := s.Next(s.now())
		s.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("shutting down scheduler")
			return nil
		case <-timer.C:
		}

		if err := s.run(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	}
}
