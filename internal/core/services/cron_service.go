package services

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// expirationSweepSchedule runs nightly, after the membership year rollover
// at midnight has settled.
const expirationSweepSchedule = "0 3 * * *"

// CronService runs the scheduled background jobs
type CronService struct {
	cron              *cron.Cron
	membershipService *MembershipService
}

// NewCronService creates a new cron service
func NewCronService(membershipService *MembershipService) *CronService {
	return &CronService{
		cron:              cron.New(),
		membershipService: membershipService,
	}
}

// Start registers the jobs and launches the scheduler
func (s *CronService) Start() {
	if _, err := s.cron.AddFunc(expirationSweepSchedule, s.runExpirationSweep); err != nil {
		log.Printf("❌ Failed to schedule expiration sweep: %v", err)
		return
	}
	s.cron.Start()
	log.Println("🚀 CronService started (expiration sweep daily at 03:00)")
}

// Stop gracefully stops the scheduler
func (s *CronService) Stop() {
	s.cron.Stop()
	log.Println("🛑 CronService stopped")
}

func (s *CronService) runExpirationSweep() {
	n, err := s.membershipService.RunExpirationSweep(context.Background())
	if err != nil {
		log.Printf("❌ Expiration sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🗑️ Expiration sweep: %d membership(s) expired", n)
	}
}
