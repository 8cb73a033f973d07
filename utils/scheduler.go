package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Scheduler runs named jobs on cron schedules. It is a thin wrapper used by
// the auto-training command for periodic retraining.
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	logger *Logger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		jobs:   make(map[string]cron.EntryID),
		logger: GetLogger(),
	}
}

// Add registers fn under a generated job id with a standard cron expression.
// Returns the job id and the first scheduled run time.
func (s *Scheduler) Add(name, spec string, fn func()) (string, time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	id := uuid.New().String()
	entryID := s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.logger.Info("running scheduled job",
			Component("scheduler"),
			String("job", name))
		fn()
	}))
	s.jobs[id] = entryID

	next := schedule.Next(time.Now())
	s.logger.Info("job scheduled",
		Component("scheduler"),
		String("job", name),
		String("schedule", spec),
		String("next_run", next.Format(time.RFC3339)))
	return id, next, nil
}

// Remove unschedules a job by id.
func (s *Scheduler) Remove(id string) {
	if entryID, ok := s.jobs[id]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, id)
	}
}

// Start begins dispatching scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", Component("scheduler"))
}

// Stop halts dispatch; running jobs finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped", Component("scheduler"))
}
