package store

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
)

func (db *DB) CreateJob(job *domain.QueueJob) error {
	query := `INSERT INTO queue_jobs (id, url, type, status, progress, options, created_at, updated_at)
		VALUES (:id, :url, :type, :status, :progress, :options, :created_at, :updated_at)`

	_, err := db.NamedExec(query, job)
	return err
}

func (db *DB) GetJob(id string) (*domain.QueueJob, error) {
	query := `SELECT id, url, type, status, progress, options, error, file_id, created_at, updated_at
		FROM queue_jobs WHERE id = ?`

	job := &domain.QueueJob{}
	err := db.Get(job, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListPendingJobs returns the oldest pending jobs in FIFO order by creation time.
func (db *DB) ListPendingJobs(limit int) ([]*domain.QueueJob, error) {
	query := `SELECT id, url, type, status, progress, options, error, file_id, created_at, updated_at
		FROM queue_jobs WHERE status = ? ORDER BY created_at ASC LIMIT ?`

	var jobs []*domain.QueueJob
	err := db.Select(&jobs, query, domain.JobStatusPending, limit)
	return jobs, err
}

func (db *DB) ListJobs(limit int) ([]*domain.QueueJob, error) {
	query := `SELECT id, url, type, status, progress, options, error, file_id, created_at, updated_at
		FROM queue_jobs ORDER BY created_at DESC LIMIT ?`

	var jobs []*domain.QueueJob
	err := db.Select(&jobs, query, limit)
	return jobs, err
}

func (db *DB) UpdateJobStatus(id string, status domain.JobStatus, progress int) error {
	query := `UPDATE queue_jobs SET status = ?, progress = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, status, progress, time.Now(), id)
	return err
}

// SetJobStatusOnly changes the status without touching progress. Used by
// pause and resume.
func (db *DB) SetJobStatusOnly(id string, status domain.JobStatus) error {
	query := `UPDATE queue_jobs SET status = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, status, time.Now(), id)
	return err
}

func (db *DB) UpdateJobProgress(id string, progress int) error {
	query := `UPDATE queue_jobs SET progress = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, progress, time.Now(), id)
	return err
}

// MarkJobFailed records a failure message on a job that has not yet reached a
// terminal state. Terminal rows are left untouched; the returned count is zero
// when the job settled first.
func (db *DB) MarkJobFailed(id string, errorMsg string) (int64, error) {
	query := `UPDATE queue_jobs SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'partial', 'failed')`
	res, err := db.Exec(query, domain.JobStatusFailed, errorMsg, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CompleteJob finalizes a job as completed with full progress and an optional
// link to the produced file. A job already in a terminal state stays there.
func (db *DB) CompleteJob(id string, fileID *string) error {
	query := `UPDATE queue_jobs SET status = ?, progress = 100, file_id = ?, updated_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'partial', 'failed')`
	_, err := db.Exec(query, domain.JobStatusCompleted, fileID, time.Now(), id)
	return err
}

// CompleteJobPartial finalizes a playlist job where some items failed. The
// note summarizes the shortfall; it lives in the error column but the status
// stays distinct from failed. A job already in a terminal state stays there.
func (db *DB) CompleteJobPartial(id string, fileID *string, note string) error {
	query := `UPDATE queue_jobs SET status = ?, progress = 100, file_id = ?, error = ?, updated_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'partial', 'failed')`
	_, err := db.Exec(query, domain.JobStatusPartial, fileID, note, time.Now(), id)
	return err
}

// ResetProcessingJobs moves jobs orphaned in the processing state back to
// pending with cleared progress and error. Returns the number of jobs reset.
func (db *DB) ResetProcessingJobs() (int64, error) {
	query := `UPDATE queue_jobs SET status = ?, progress = 0, error = NULL, updated_at = ? WHERE status = ?`
	res, err := db.Exec(query, domain.JobStatusPending, time.Now(), domain.JobStatusProcessing)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PauseActiveJobs moves all pending and processing jobs to paused.
func (db *DB) PauseActiveJobs() (int64, error) {
	query := `UPDATE queue_jobs SET status = ?, updated_at = ? WHERE status IN (?, ?)`
	res, err := db.Exec(query, domain.JobStatusPaused, time.Now(), domain.JobStatusPending, domain.JobStatusProcessing)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResumePausedJobs moves all paused jobs back to pending.
func (db *DB) ResumePausedJobs() (int64, error) {
	query := `UPDATE queue_jobs SET status = ?, updated_at = ? WHERE status = ?`
	res, err := db.Exec(query, domain.JobStatusPending, time.Now(), domain.JobStatusPaused)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteFinishedJobsBefore deletes jobs in the given terminal statuses whose
// updated_at is older than the cutoff.
func (db *DB) DeleteFinishedJobsBefore(statuses []domain.JobStatus, cutoff time.Time) (int64, error) {
	query := `DELETE FROM queue_jobs WHERE status IN (?) AND updated_at < ?`
	q, args, err := sqlx.In(query, statuses, cutoff)
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type QueueStats struct {
	Pending    int `db:"pending" json:"pending"`
	Processing int `db:"processing" json:"processing"`
	Paused     int `db:"paused" json:"paused"`
	Completed  int `db:"completed" json:"completed"`
	Partial    int `db:"partial" json:"partial"`
	Failed     int `db:"failed" json:"failed"`
	Total      int `db:"total" json:"total"`
}

func (db *DB) GetQueueStats() (*QueueStats, error) {
	query := `SELECT
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) as pending,
		COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0) as processing,
		COALESCE(SUM(CASE WHEN status = 'paused' THEN 1 ELSE 0 END), 0) as paused,
		COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) as completed,
		COALESCE(SUM(CASE WHEN status = 'partial' THEN 1 ELSE 0 END), 0) as partial,
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed
	FROM queue_jobs`

	stats := &QueueStats{}
	err := db.Get(stats, query)
	return stats, err
}
