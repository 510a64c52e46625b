package model

import "time"

// JobStatus tracks a background generation job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents one generation run over a draft version.
type Job struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Stream      Stream     `json:"stream"`
	VersionID   string     `json:"versionId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// GenerateJobPayload is the asynq task body for a generation job. Targets
// lists the track ids to synthesize; empty means every unit of the draft
// that has no audio yet.
type GenerateJobPayload struct {
	ProjectID string   `json:"projectId"`
	Stream    Stream   `json:"stream"`
	VersionID string   `json:"versionId"`
	Targets   []string `json:"targets,omitempty"`
}
