package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TranslationJobStatus represents the status of a translation job.
type TranslationJobStatus string

const (
	JobStatusQueued     TranslationJobStatus = "queued"
	JobStatusProcessing TranslationJobStatus = "processing"
	JobStatusCompleted  TranslationJobStatus = "completed"
	JobStatusFailed     TranslationJobStatus = "failed"
)

// TranslationJob represents an asynchronous translation request. Cold
// model loads can block for minutes, so the UI submits a job and
// follows its progress instead of holding one long request open.
type TranslationJob struct {
	ID          string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	// Request data
	SourceName string
	TargetName string
	Text       string

	// Result data
	Result Result
	Error  string
	// ErrorMessage is the user-facing form of Error (DisplayMessage).
	ErrorMessage string

	// Progress tracking
	Status          TranslationJobStatus
	ProgressPercent int32
	ProgressMessage string

	mu sync.RWMutex
}

// JobQueue manages asynchronous translation jobs in memory.
type JobQueue struct {
	jobs      map[string]*TranslationJob
	jobsMu    sync.RWMutex
	logger    *logrus.Logger
	processor *JobProcessor
}

// NewJobQueue creates a new job queue.
func NewJobQueue(logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobQueue{
		jobs:   make(map[string]*TranslationJob),
		logger: logger,
	}
}

// SetProcessor sets the job processor for this queue.
func (q *JobQueue) SetProcessor(processor *JobProcessor) {
	q.processor = processor
}

// CreateJob enqueues a translation request and returns its job ID.
// Processing starts immediately in the background.
func (q *JobQueue) CreateJob(sourceName, targetName, text string) (string, error) {
	jobID := uuid.New().String()

	job := &TranslationJob{
		ID:         jobID,
		Status:     JobStatusQueued,
		CreatedAt:  time.Now(),
		SourceName: sourceName,
		TargetName: targetName,
		Text:       text,
	}

	q.jobsMu.Lock()
	q.jobs[jobID] = job
	q.jobsMu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"job_id":      jobID,
		"source_lang": sourceName,
		"target_lang": targetName,
		"text_length": len(text),
	}).Info("Created translation job")

	if q.processor != nil {
		go q.processor.ProcessJob(job)
	}

	return jobID, nil
}

// GetJob retrieves a job by ID.
func (q *JobQueue) GetJob(jobID string) (*TranslationJob, error) {
	q.jobsMu.RLock()
	defer q.jobsMu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// UpdateStatus updates the status of a job.
func (j *TranslationJob) UpdateStatus(status TranslationJobStatus, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Status = status
	j.ProgressMessage = message

	now := time.Now()
	switch status {
	case JobStatusProcessing:
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
	case JobStatusCompleted, JobStatusFailed:
		if j.CompletedAt == nil {
			j.CompletedAt = &now
		}
	}
}

// UpdateProgress updates the progress of a job.
func (j *TranslationJob) UpdateProgress(percent int32, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.ProgressPercent = percent
	j.ProgressMessage = message
}

// SetError marks the job failed, keeping both the raw error and the
// user-facing message.
func (j *TranslationJob) SetError(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Error = err.Error()
	j.ErrorMessage = DisplayMessage(err)
	j.Status = JobStatusFailed
	now := time.Now()
	j.CompletedAt = &now
}

// SetResult marks the job completed with its translation result.
func (j *TranslationJob) SetResult(result Result) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Result = result
	j.Status = JobStatusCompleted
	now := time.Now()
	j.CompletedAt = &now
	j.ProgressPercent = 100
}

// GetStatus returns a copy of the job status (thread-safe).
func (j *TranslationJob) GetStatus() (TranslationJobStatus, string, int32) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.Status, j.ProgressMessage, j.ProgressPercent
}

// Snapshot returns a consistent copy of the job for serialization.
func (j *TranslationJob) Snapshot() TranslationJob {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return TranslationJob{
		ID:              j.ID,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		SourceName:      j.SourceName,
		TargetName:      j.TargetName,
		Text:            j.Text,
		Result:          j.Result,
		Error:           j.Error,
		ErrorMessage:    j.ErrorMessage,
		Status:          j.Status,
		ProgressPercent: j.ProgressPercent,
		ProgressMessage: j.ProgressMessage,
	}
}

// CleanupOldJobs removes completed or failed jobs older than maxAge.
func (q *JobQueue) CleanupOldJobs(maxAge time.Duration) {
	q.jobsMu.Lock()
	defer q.jobsMu.Unlock()

	now := time.Now()
	removed := 0

	for id, job := range q.jobs {
		status, _, _ := job.GetStatus()
		if status == JobStatusCompleted || status == JobStatusFailed {
			job.mu.RLock()
			completedAt := job.CompletedAt
			job.mu.RUnlock()
			if completedAt != nil && now.Sub(*completedAt) > maxAge {
				delete(q.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		q.logger.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(q.jobs),
		}).Info("Cleaned up old translation jobs")
	}
}
