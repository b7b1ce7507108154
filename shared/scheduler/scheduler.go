package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"social-stack/shared/monitoring"

	"github.com/robfig/cron/v3"
)

// Metrics defines the common interface for agent run metrics
type Metrics interface {
	// GetSummary returns a human-readable summary of the run
	GetSummary() string
}

// Agent defines the interface that all agents must implement
type Agent interface {
	Name() string
	Initialize() error
	RunOnce(ctx context.Context) (Metrics, error)
}

// Scheduler manages the execution of an agent on a cron schedule
type Scheduler struct {
	schedule string
	tracker  *monitoring.Tracker
	agent    Agent
	cron     *cron.Cron
}

func New(schedule string, tracker *monitoring.Tracker, agent Agent) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		tracker:  tracker,
		agent:    agent,
		// Prevent overlapping runs
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start registers the cron job and blocks until the context is cancelled.
// The agent must already be initialized.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			log.Printf("Error running scheduled job for %s: %v", s.agent.Name(), err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	log.Printf("Scheduler started for %s with schedule: %s", s.agent.Name(), s.schedule)
	s.cron.Start()

	<-ctx.Done()
	log.Printf("Scheduler stopped for %s", s.agent.Name())
	s.cron.Stop()
	return ctx.Err()
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	startTime := time.Now()
	agentName := s.agent.Name()

	log.Printf("Starting %s run...", agentName)

	metrics, err := s.agent.RunOnce(ctx)
	duration := time.Since(startTime)
	if err != nil {
		s.tracker.RecordFailure(fmt.Errorf("%s failed: %w", agentName, err), duration)
		return fmt.Errorf("%s run failed: %w", agentName, err)
	}

	s.tracker.RecordSuccess(metrics.GetSummary(), duration)
	return nil
}
