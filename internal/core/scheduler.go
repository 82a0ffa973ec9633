package core

import (
	"fmt"
	"time"

	"github.com/keepmind9/tubebot/internal/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const farewellSong = `빠빠빠 빠빠빠 빠빠빠빠 빠빠빠 빠빠빠 빠 빠빠빠
빠빠빠 빠빠빠 빠빠빠빠 빠빠빠 빠빠빠 빠 빠빠빠
지금은 우리가 헤어져야 할 시간 다음에 또 만나요
지금은 우리가 헤어져야 할 시간 다음에 다시 만나요`

// DefaultJobs are the weekday end-of-day announcements
func DefaultJobs() []JobConfig {
	return []JobConfig{
		{Spec: "0 50 18 * * 1-5", Message: "퇴근 10분 전"},
		{Spec: "0 0 19 * * 1-5", Message: farewellSong},
	}
}

// Scheduler posts fixed messages on cron schedules
type Scheduler struct {
	cron *cron.Cron
	send func(content string)
}

// NewScheduler registers jobs in loc. Specs have six fields, seconds first.
func NewScheduler(loc *time.Location, jobs []JobConfig, send func(content string)) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	cronLogger := cron.PrintfLogger(logger.GetLogger())

	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		send: send,
	}

	for i, job := range jobs {
		if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
			return nil, fmt.Errorf("failed to add job %d (%s): %w", i, job.Spec, err)
		}
	}

	return s, nil
}

func (s *Scheduler) run(job JobConfig) {
	logger.WithComponent("scheduler").WithField("spec", job.Spec).Info("scheduled-announcement-firing")
	s.send(job.Message)
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()

	for _, entry := range s.cron.Entries() {
		logger.WithComponent("scheduler").WithFields(logrus.Fields{
			"entry_id": entry.ID,
			"next":     entry.Next,
		}).Info("scheduled-announcement-registered")
	}
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.WithComponent("scheduler").Info("scheduler-stopped")
}

// Entries returns the registered cron entries
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
