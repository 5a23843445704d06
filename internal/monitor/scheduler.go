package monitor

import (
	"context"
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store"
	"github.com/robfig/cron/v3"
	"log"
	"time"
)

// purgeSpec runs retention once a minute regardless of the stats schedule.
const purgeSpec = "@every 1m"

// Scheduler runs the periodic queue housekeeping: the stats report that feeds
// the queue gauges and the purge of completed jobs past retention.
type Scheduler struct {
	cron      *cron.Cron
	jobs      store.JobStore
	metrics   *Metrics
	retention time.Duration
	now       func() time.Time
}

func NewScheduler(jobs store.JobStore, metrics *Metrics, statsSpec string, retention time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		jobs:      jobs,
		metrics:   metrics,
		retention: retention,
		now:       time.Now,
	}
	if _, err := s.cron.AddFunc(statsSpec, func() { s.ReportStats(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule stats report %q: %w", statsSpec, err)
	}
	if _, err := s.cron.AddFunc(purgeSpec, func() { s.PurgeCompleted(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule purge: %w", err)
	}
	return s, nil
}

// Start runs the scheduled tasks until ctx is done and waits for running
// tasks to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	log.Println("queue monitor started")
	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Println("queue monitor stopped")
	return nil
}

func (s *Scheduler) ReportStats(ctx context.Context) map[state.JobState]int {
	counts, err := s.jobs.CountAllJobsGroupedByState(ctx)
	if err != nil {
		log.Printf("CountAllJobsGroupedByState error: %s", err.Error())
		return nil
	}
	if s.metrics != nil {
		s.metrics.SetQueueJobs(counts)
	}
	log.Printf("queue stats: waiting=%d active=%d completed=%d",
		counts[state.StateWaiting], counts[state.StateActive], counts[state.StateCompleted])
	return counts
}

func (s *Scheduler) PurgeCompleted(ctx context.Context) int {
	n, err := s.jobs.PurgeCompleted(ctx, s.now().Add(-s.retention))
	if err != nil {
		log.Printf("PurgeCompleted error: %s", err.Error())
		return 0
	}
	if n > 0 {
		log.Printf("purged %d completed jobs", n)
		if s.metrics != nil {
			s.metrics.AddPurged(n)
		}
	}
	return n
}
