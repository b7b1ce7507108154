package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	socialposter "social-stack/agents/social-poster"
	"social-stack/agents/social-poster/api"
	"social-stack/shared/config"
	"social-stack/shared/logging"
	"social-stack/shared/monitoring"
	"social-stack/shared/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracker := monitoring.NewTracker()
	activity, err := logging.NewActivityLog(cfg.Server.LogFile)
	if err != nil {
		log.Fatalf("Failed to create activity log: %v", err)
	}

	agent := socialposter.NewAgent(cfg, tracker, activity)
	if err := agent.Initialize(); err != nil {
		log.Fatalf("Failed to initialize agent: %v", err)
	}

	s := scheduler.New(cfg.Schedule, tracker, agent)

	runOnce := cfg.RunOnce || (len(os.Args) > 1 && os.Args[1] == "--once")
	if runOnce {
		fmt.Println("Running once...")
		if err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("Run interrupted, shutting down gracefully")
				return
			}
			log.Fatalf("Failed to run: %v", err)
		}
		return
	}

	server := api.NewServer(cfg, tracker, activity,
		s.RunOnce, agent.GenerateVideos, agent.PostSingle)

	go func() {
		if err := server.Start(ctx); err != nil {
			log.Printf("API server error: %v", err)
			cancel()
		}
	}()

	fmt.Println("Starting scheduler...")
	if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Scheduler failed: %v", err)
	}
	log.Println("Shutdown complete")
}
