package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// JobProcessor drives queued translation jobs through the service,
// publishing coarse progress along the way. The loading phase owns
// most of the progress range because a cold model load dominates the
// wall-clock time of a first request for a pair.
type JobProcessor struct {
	service *TranslationService
	logger  *logrus.Logger
	timeout time.Duration
}

// NewJobProcessor creates a new job processor.
func NewJobProcessor(service *TranslationService, logger *logrus.Logger) *JobProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobProcessor{
		service: service,
		logger:  logger,
		timeout: 15 * time.Minute,
	}
}

// ProcessJob runs one job to completion or failure.
func (p *JobProcessor) ProcessJob(job *TranslationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	p.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"source_lang": job.SourceName,
		"target_lang": job.TargetName,
	}).Info("Starting translation job")

	job.UpdateStatus(JobStatusProcessing, "Resolving language pair...")
	job.UpdateProgress(10, "Loading translation model (first use of a pair downloads weights)...")

	result, err := p.service.Translate(ctx, job.SourceName, job.TargetName, job.Text)
	if err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"job_id": job.ID,
		}).Error("Translation job failed")
		job.SetError(err)
		return
	}

	job.UpdateProgress(95, "Finalizing...")
	job.SetResult(result)

	p.logger.WithFields(logrus.Fields{
		"job_id":         job.ID,
		"model_id":       result.ModelID,
		"inference_time": result.InferenceSeconds,
	}).Info("Translation job completed successfully")
}
