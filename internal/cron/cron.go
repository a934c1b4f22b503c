package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/finlead/membership-backend/internal/service"
)

// Scheduler runs the nightly reconciliation jobs in-process. The same jobs
// stay callable over HTTP so an operator (or an external scheduler) can
// trigger a pass on demand; both paths are idempotent.
type Scheduler struct {
	cron     *cron.Cron
	services *service.Services
}

// NewScheduler creates a new scheduler
func NewScheduler(services *service.Services) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		services: services,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Nightly at 02:00 - resume members whose suspension window elapsed
	s.cron.AddFunc("0 2 * * *", func() {
		log.Println("[Cron] Running auto-resume pass...")
		s.runAutoResume()
	})

	// Nightly at 02:30 - demote members flagged in the previous cycle
	s.cron.AddFunc("30 2 * * *", func() {
		log.Println("[Cron] Running auto-demotion pass...")
		s.runAutoDemotion()
	})

	s.cron.Start()
	log.Println("⏰ Cron scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("⏰ Cron scheduler stopped")
}

func (s *Scheduler) runAutoResume() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := s.services.Jobs.RunAutoResume(ctx)
	if err != nil {
		log.Printf("❌ [Cron] Auto-resume failed: %v", err)
		return
	}
	log.Printf("[Cron] Auto-resume: %d succeeded, %d skipped, %d failed",
		len(summary.Succeeded), len(summary.Skipped), len(summary.Failed))
}

func (s *Scheduler) runAutoDemotion() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := s.services.Jobs.RunAutoDemotion(ctx)
	if err != nil {
		log.Printf("❌ [Cron] Auto-demotion failed: %v", err)
		return
	}
	log.Printf("[Cron] Auto-demotion: %d succeeded, %d skipped, %d failed",
		len(summary.Succeeded), len(summary.Skipped), len(summary.Failed))
}
