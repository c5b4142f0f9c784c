// Package queue admits download requests and drives them through the worker
// pipeline in FIFO order.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/constants"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/events"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/store"
)

var (
	ErrEmptyURL       = errors.New("url must not be empty")
	ErrInvalidJobType = errors.New("invalid job type")
	ErrInvalidOptions = errors.New("invalid job options")
	ErrJobNotFound    = errors.New("job not found")
	ErrJobNotActive   = errors.New("job is not active")
)

// Runner executes a single job to a terminal state. A nil return means the
// runner already persisted the terminal status; an error means the caller
// records the job as failed.
type Runner interface {
	Run(ctx context.Context, job *domain.QueueJob) error
}

// Manager is the queue front door: it admits jobs, schedules pending work up
// to the concurrency bound and exposes control operations.
type Manager struct {
	store  *store.DB
	log    *logger.Logger
	events events.Broadcaster
	runner Runner

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu            sync.Mutex
	active        int
	maxConcurrent int
	cancels       map[string]context.CancelFunc
}

func NewManager(db *store.DB, log *logger.Logger, bc events.Broadcaster, runner Runner, maxConcurrent int) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = constants.DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:         db,
		log:           log.WithComponent("queue"),
		events:        bc,
		runner:        runner,
		baseCtx:       ctx,
		cancelBase:    cancel,
		maxConcurrent: maxConcurrent,
		cancels:       make(map[string]context.CancelFunc),
	}
}

// Enqueue validates and admits a new job, then kicks the scheduler. The job
// is returned in pending state; processing happens asynchronously.
func (m *Manager) Enqueue(url string, jobType domain.JobType, opts domain.JobOptions) (*domain.QueueJob, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}
	if !jobType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobType, jobType)
	}
	if err := opts.ValidateFor(jobType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	now := time.Now()
	job := &domain.QueueJob{
		ID:        uuid.New().String(),
		URL:       url,
		Type:      jobType,
		Status:    domain.JobStatusPending,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.log.Info("Job enqueued", "job_id", job.ID, "type", job.Type, "url", url)
	m.Schedule()
	return job, nil
}

// Schedule starts as many pending jobs as the concurrency bound allows, in
// FIFO order by creation time. It is invoked on enqueue, on job settlement
// and after crash recovery; calling it with nothing to do is harmless.
func (m *Manager) Schedule() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.active < m.maxConcurrent {
		if m.baseCtx.Err() != nil {
			return
		}

		jobs, err := m.store.ListPendingJobs(1)
		if err != nil {
			m.log.Error("Failed to list pending jobs", "error", err)
			return
		}
		if len(jobs) == 0 {
			return
		}
		job := jobs[0]

		if err := m.store.UpdateJobStatus(job.ID, domain.JobStatusProcessing, 0); err != nil {
			m.log.Error("Failed to mark job processing", "job_id", job.ID, "error", err)
			return
		}
		job.Status = domain.JobStatusProcessing
		job.Progress = 0

		ctx, cancel := context.WithCancel(m.baseCtx)
		m.cancels[job.ID] = cancel
		m.active++

		m.events.EmitStatus(job.ID, domain.JobStatusProcessing, 0)

		m.wg.Add(1)
		go m.dispatch(ctx, job)
	}
}

func (m *Manager) dispatch(ctx context.Context, job *domain.QueueJob) {
	defer m.wg.Done()
	defer m.settle(job.ID)

	log := m.log.WithJob(job.ID, string(job.Type))

	err := m.runSafely(ctx, job)
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Cancel already recorded the terminal state.
		log.Info("Job cancelled")
		return
	}

	log.Error("Job failed", "error", err)
	n, dbErr := m.store.MarkJobFailed(job.ID, err.Error())
	if dbErr != nil {
		log.Error("Failed to record job failure", "error", dbErr)
		return
	}
	if n == 0 {
		// The job reached a terminal state before the failure landed.
		return
	}
	m.events.EmitError(job.ID, err.Error())
	m.events.EmitStatus(job.ID, domain.JobStatusFailed, job.Progress)
}

// runSafely converts a runner panic into an error so one bad job cannot take
// the scheduler down.
func (m *Manager) runSafely(ctx context.Context, job *domain.QueueJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job runner panicked: %v", r)
		}
	}()
	return m.runner.Run(ctx, job)
}

// settle releases the job's slot and re-invokes the scheduler so the queue
// drains without an external tick.
func (m *Manager) settle(jobID string) {
	m.mu.Lock()
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
		delete(m.cancels, jobID)
	}
	m.active--
	m.mu.Unlock()

	m.Schedule()
}

// GetStatus returns the current state of a job.
func (m *Manager) GetStatus(id string) (*domain.QueueJob, error) {
	job, err := m.store.GetJob(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// List returns recent jobs, newest first.
func (m *Manager) List(limit int) ([]*domain.QueueJob, error) {
	return m.store.ListJobs(limit)
}

// Cancel stops a pending or processing job. A processing job's context is
// cancelled, which kills the underlying process; the job is recorded as
// failed with a cancellation message.
func (m *Manager) Cancel(id string) error {
	job, err := m.GetStatus(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: job is already %s", ErrJobNotActive, job.Status)
	}

	n, err := m.store.MarkJobFailed(id, constants.CancelledByUser)
	if err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}
	if n == 0 {
		// The job settled between the status check and the write.
		return fmt.Errorf("%w: job already finished", ErrJobNotActive)
	}

	m.mu.Lock()
	if cancel, ok := m.cancels[id]; ok {
		cancel()
	}
	m.mu.Unlock()

	m.log.Info("Job cancelled", "job_id", id)
	m.events.EmitStatus(id, domain.JobStatusFailed, job.Progress)
	return nil
}

// Pause marks a pending or processing job paused. An in-flight download runs
// to completion; the paused status keeps the scheduler from starting more
// work, matching PauseAll.
func (m *Manager) Pause(id string) error {
	job, err := m.GetStatus(id)
	if err != nil {
		return err
	}
	if job.Status != domain.JobStatusPending && job.Status != domain.JobStatusProcessing {
		return fmt.Errorf("%w: job is %s", ErrJobNotActive, job.Status)
	}

	if err := m.store.SetJobStatusOnly(id, domain.JobStatusPaused); err != nil {
		return err
	}
	m.events.EmitStatus(id, domain.JobStatusPaused, job.Progress)
	return nil
}

// Resume moves a paused job back to pending and kicks the scheduler.
func (m *Manager) Resume(id string) error {
	job, err := m.GetStatus(id)
	if err != nil {
		return err
	}
	if job.Status != domain.JobStatusPaused {
		return fmt.Errorf("%w: job is %s, not paused", ErrJobNotActive, job.Status)
	}

	if err := m.store.SetJobStatusOnly(id, domain.JobStatusPending); err != nil {
		return err
	}
	m.events.EmitStatus(id, domain.JobStatusPending, job.Progress)
	m.Schedule()
	return nil
}

// PauseAll pauses every pending and processing job. In-flight downloads run
// to completion; the paused status keeps their successors from starting.
func (m *Manager) PauseAll() (int64, error) {
	n, err := m.store.PauseActiveJobs()
	if err != nil {
		return 0, err
	}
	m.log.Info("Paused all active jobs", "count", n)
	return n, nil
}

// ResumeAll moves every paused job back to pending and kicks the scheduler.
func (m *Manager) ResumeAll() (int64, error) {
	n, err := m.store.ResumePausedJobs()
	if err != nil {
		return 0, err
	}
	m.log.Info("Resumed paused jobs", "count", n)
	m.Schedule()
	return n, nil
}

// Summary returns per-status job counts.
func (m *Manager) Summary() (*store.QueueStats, error) {
	return m.store.GetQueueStats()
}

// CleanupOld deletes terminal jobs whose last update is older than the given
// number of days.
func (m *Manager) CleanupOld(daysToKeep int) (int64, error) {
	if daysToKeep < 1 {
		daysToKeep = constants.CompletedRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)

	n, err := m.store.DeleteFinishedJobsBefore(
		[]domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusPartial, domain.JobStatusFailed},
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune old jobs: %w", err)
	}
	if n > 0 {
		m.log.Info("Pruned old jobs", "count", n, "days_kept", daysToKeep)
	}
	return n, nil
}

// Stop cancels all running jobs and waits for their goroutines to settle.
func (m *Manager) Stop() {
	m.cancelBase()
	m.wg.Wait()
	m.log.Info("Queue manager stopped")
}
