package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Warmer preloads upcoming prayer schedules; *prayer.Service implements it.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Scheduler periodically warms the prayer time caches for configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmers   []Warmer
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(warmers []Warmer, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		warmers:   warmers,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the warm-up job, runs it once immediately and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.warmers) == 0 {
		log.Info().Msg("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce warms every location concurrently and waits for them to finish.
func (s *Scheduler) RunOnce() {
	log.Debug().Int("locations", len(s.warmers)).Msg("scheduler: running prayer times warm-up")

	var wg sync.WaitGroup
	for _, w := range s.warmers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := w.Warm(ctx); err != nil {
				log.Error().Err(err).Msg("scheduler: warm-up failed")
			}
		}()
	}
	wg.Wait()
	log.Debug().Msg("scheduler: completed prayer times warm-up")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
