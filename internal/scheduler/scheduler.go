package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler runs the service's periodic background jobs (simulation
// ticks, threshold evaluation) on fixed intervals.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       zerolog.Logger
}

// New creates a stopped Scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		log:       log,
	}
}

// AddJob registers a named job to run every interval. A panicking
// tick is logged and skipped; it never terminates the job. Ticks of
// the same job do not overlap.
func (s *Scheduler) AddJob(name string, interval time.Duration, job func()) error {
	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("job", name).Any("panic", r).Msg("scheduled job tick panicked")
			}
		}()
		job()
	})
	return err
}

// Start launches the scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop signals all jobs to stop before their next tick; in-flight
// ticks run to completion.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
