package queue

import (
	"fmt"
	"time"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/constants"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/store"
)

// RecoveryService repairs queue state after an unclean shutdown and prunes
// old finished jobs.
type RecoveryService struct {
	store   *store.DB
	log     *logger.Logger
	manager *Manager
	delay   time.Duration
}

func NewRecoveryService(db *store.DB, log *logger.Logger, manager *Manager) *RecoveryService {
	return &RecoveryService{
		store:   db,
		log:     log.WithComponent("recovery"),
		manager: manager,
		delay:   constants.RecoveryScheduleDelay,
	}
}

// Run resets jobs orphaned in the processing state back to pending and, if
// any work remains, schedules it after a short delay so startup finishes
// first. Idempotent; a second call finds nothing to reset.
func (r *RecoveryService) Run() error {
	reset, err := r.store.ResetProcessingJobs()
	if err != nil {
		return fmt.Errorf("failed to reset orphaned jobs: %w", err)
	}
	if reset > 0 {
		r.log.Info("Reset orphaned jobs to pending", "count", reset)
	}

	stats, err := r.store.GetQueueStats()
	if err != nil {
		return fmt.Errorf("failed to read queue stats: %w", err)
	}
	r.log.Info("Queue state at startup",
		"pending", stats.Pending,
		"processing", stats.Processing,
		"paused", stats.Paused,
		"completed", stats.Completed,
		"partial", stats.Partial,
		"failed", stats.Failed)

	if stats.Pending > 0 {
		r.log.Info("Scheduling recovered work", "pending", stats.Pending, "delay", r.delay)
		time.AfterFunc(r.delay, r.manager.Schedule)
	}
	return nil
}

// CleanupFinishedJobs deletes terminal jobs past their retention window:
// completed and partial jobs after a week, failed jobs after a month.
func (r *RecoveryService) CleanupFinishedJobs() (int64, error) {
	now := time.Now()

	done, err := r.store.DeleteFinishedJobsBefore(
		[]domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusPartial},
		now.AddDate(0, 0, -constants.CompletedRetentionDays),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune finished jobs: %w", err)
	}

	failed, err := r.store.DeleteFinishedJobsBefore(
		[]domain.JobStatus{domain.JobStatusFailed},
		now.AddDate(0, 0, -constants.FailedRetentionDays),
	)
	if err != nil {
		return done, fmt.Errorf("failed to prune failed jobs: %w", err)
	}

	total := done + failed
	if total > 0 {
		r.log.Info("Pruned old jobs", "count", total)
	}
	return total, nil
}
