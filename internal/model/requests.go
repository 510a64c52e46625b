package model

import "time"

// CreateProjectRequest starts a new ad project from a client brief.
type CreateProjectRequest struct {
	Brief Brief `json:"brief" validate:"required"`
}

// CreateDraftRequest opens a stream's draft slot. ParentID forks an explicit
// lineage branch; when set it may displace an orphaned existing draft.
type CreateDraftRequest struct {
	Content  *ContentPatch `json:"content,omitempty"`
	ParentID *string       `json:"parentId,omitempty"`
}

// UpdateDraftRequest merges a partial content patch into the draft.
type UpdateDraftRequest struct {
	Patch ContentPatch `json:"patch"`
}

// FreezeRequest controls whether freezing leaves the stream editable.
// SpawnChild defaults to true: editing continues from the frozen snapshot.
type FreezeRequest struct {
	SpawnChild *bool `json:"spawnChild,omitempty"`
}

// IterateRequest asks the assistant for a revised draft derived from a
// frozen parent.
type IterateRequest struct {
	ChangeRequest string `json:"changeRequest" validate:"required,min=3"`
}

// GenerateRequest starts a generation job for a draft version.
type GenerateRequest struct {
	ProjectID string   `json:"projectId" validate:"required,uuid"`
	Stream    Stream   `json:"stream" validate:"required"`
	VersionID string   `json:"versionId" validate:"required,uuid"`
	Targets   []string `json:"targets,omitempty"`
}

// GenerateResponse acknowledges an enqueued generation job.
type GenerateResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusResponse reports the state of a generation job.
type JobStatusResponse struct {
	JobID       string     `json:"jobId"`
	ProjectID   string     `json:"projectId"`
	Stream      Stream     `json:"stream"`
	VersionID   string     `json:"versionId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ActivateResponse returns the recomposed timeline after a pointer update.
type ActivateResponse struct {
	Project  *Project  `json:"project"`
	Timeline *Timeline `json:"timeline"`
}

// StreamHistoryResponse lists a stream's lineage from its newest head.
type StreamHistoryResponse struct {
	Stream   Stream     `json:"stream"`
	DraftID  string     `json:"draftId,omitempty"`
	ActiveID string     `json:"activeId,omitempty"`
	Versions []*Version `json:"versions"`
}
