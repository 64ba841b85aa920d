package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler enqueues periodic maintenance tasks onto the mail stream so
// the worker trims delivered entries. It never touches account state.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, stream string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		stream: stream,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	// nightly outbox trim
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.enqueueTrim); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for in-flight jobs, bounded by a short timeout.
func (s *Scheduler) Stop() {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueTrim() {
	_, err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"type": "trim"},
	}).Result()
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue trim failed")
	}
}
