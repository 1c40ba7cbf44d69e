package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/tasks"
)

// PruneSchedule is how often idle browser sessions are pruned
const PruneSchedule = "@hourly"

// standard 5-field format: minute hour day-of-month month day-of-week
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler enqueues periodic tasks
type Scheduler struct {
	cron    *cron.Cron
	client  tasks.Enqueuer
	logger  zerolog.Logger
	capture cron.EntryID
}

// NewScheduler creates a scheduler that enqueues metrics:capture on
// metricsSchedule and sessions:prune hourly
func NewScheduler(client tasks.Enqueuer, metricsSchedule string, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		client: client,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}

	id, err := s.cron.AddFunc(metricsSchedule, s.enqueueCapture)
	if err != nil {
		return nil, fmt.Errorf("invalid metrics schedule %q: %w", metricsSchedule, err)
	}
	s.capture = id

	if _, err := s.cron.AddFunc(PruneSchedule, s.enqueuePrune); err != nil {
		return nil, fmt.Errorf("invalid prune schedule: %w", err)
	}

	return s, nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Time("next_capture_at", s.NextCapture()).Msg("Scheduler started")
}

// Stop stops the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// NextCapture returns when the next metrics capture is due
func (s *Scheduler) NextCapture() time.Time {
	return s.cron.Entry(s.capture).Schedule.Next(time.Now().UTC())
}

func (s *Scheduler) enqueueCapture() {
	task, err := tasks.NewCaptureMetricsTask(tasks.SourceScheduler, "")
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create capture task")
		return
	}
	s.enqueue(task)
}

func (s *Scheduler) enqueuePrune() {
	task, err := tasks.NewPruneSessionsTask()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create prune task")
		return
	}
	s.enqueue(task)
}

func (s *Scheduler) enqueue(task *asynq.Task) {
	info, err := s.client.Enqueue(task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		s.logger.Debug().Str("task_type", task.Type()).Msg("Task already queued")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("task_type", task.Type()).Msg("Failed to enqueue task")
		return
	}
	s.logger.Info().Str("task_type", task.Type()).Str("task_id", info.ID).Msg("Task enqueued")
}

// NextRun calculates the next run time of a cron expression
func NextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from), nil
}
