package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/adforge/api/internal/engine"
	"github.com/adforge/api/internal/model"
)

const TaskTypeGenerate = "generate:process"

// GenerationTaskPayload is the asynq task body: the job envelope plus the
// unit snapshots captured when the run was started. Sequence numbers were
// bumped at capture time, so any earlier in-flight run for the same units
// is already superseded.
type GenerationTaskPayload struct {
	JobID   string                   `json:"jobId"`
	Payload model.GenerateJobPayload `json:"payload"`
	Units   []engine.GenUnit         `json:"units"`
}

// GenerationService manages generation job records and enqueues the
// background work.
type GenerationService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
	engine      *engine.Engine
}

func NewGenerationService(redisClient *redis.Client, asynqClient *asynq.Client, eng *engine.Engine) *GenerationService {
	return &GenerationService{
		redis:       redisClient,
		asynqClient: asynqClient,
		engine:      eng,
	}
}

// StartGeneration snapshots the targeted units of the draft, bumps their
// generation sequences, and queues the synthesis job.
func (s *GenerationService) StartGeneration(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	units, err := s.engine.BeginGeneration(ctx, req.ProjectID, req.Stream, req.VersionID, req.Targets)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now().UTC()

	payload := GenerationTaskPayload{
		JobID: jobID,
		Payload: model.GenerateJobPayload{
			ProjectID: req.ProjectID,
			Stream:    req.Stream,
			VersionID: req.VersionID,
			Targets:   req.Targets,
		},
		Units: units,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		ProjectID: req.ProjectID,
		Stream:    req.Stream,
		VersionID: req.VersionID,
		Status:    model.JobStatusQueued,
		Payload:   payloadBytes,
		CreatedAt: now,
	}
	if err := s.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task := asynq.NewTask(TaskTypeGenerate, payloadBytes)
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("generate"),
		asynq.MaxRetry(2),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.GenerateResponse{
		JobID:     jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a generation job.
func (s *GenerationService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:       job.ID,
		ProjectID:   job.ProjectID,
		Stream:      job.Stream,
		VersionID:   job.VersionID,
		Status:      job.Status,
		Progress:    job.Progress,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// UpdateJobProgress updates job progress (called by the worker). Progress
// never moves backwards; a report below the stored value is dropped.
func (s *GenerationService) UpdateJobProgress(ctx context.Context, jobID string, progress int) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	if progress < job.Progress {
		return nil
	}
	job.Progress = progress
	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now().UTC()
		job.StartedAt = &now
	}
	return s.SaveJob(ctx, job)
}

// CompleteJob marks a job finished (called by the worker). failures carries
// per-track error detail when some units failed; the job still completes.
func (s *GenerationService) CompleteJob(ctx context.Context, jobID string, failures []string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	job.Progress = 100
	job.CompletedAt = &now
	if len(failures) == 0 {
		job.Status = model.JobStatusSucceeded
	} else {
		job.Status = model.JobStatusFailed
		msg := fmt.Sprintf("%d unit(s) failed: %v", len(failures), failures)
		job.Error = &msg
	}
	return s.SaveJob(ctx, job)
}

// FailJob marks a job failed outright (called by the worker).
func (s *GenerationService) FailJob(ctx context.Context, jobID, errMsg string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now().UTC()
	job.CompletedAt = &now
	return s.SaveJob(ctx, job)
}

// SaveJob persists a job record with a 24h retention.
func (s *GenerationService) SaveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 24*time.Hour).Err()
}

// GetJob loads a job record.
func (s *GenerationService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &model.NotFoundError{Kind: "job", ID: jobID}
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
