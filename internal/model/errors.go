package model

import "fmt"

// Typed errors for every state-machine and precondition failure. Handlers
// map these to response codes; none of them are recovered silently.

// NotFoundError reports an unknown project, version or draft id.
type NotFoundError struct {
	Kind string // "project", "version", "draft"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// DraftExistsError is returned by createDraft when the stream's draft slot
// is already occupied.
type DraftExistsError struct {
	ProjectID string
	Stream    Stream
	DraftID   string
}

func (e *DraftExistsError) Error() string {
	return fmt.Sprintf("stream %s of project %s already has draft %s", e.Stream, e.ProjectID, e.DraftID)
}

// NotDraftError reports a mutation attempted on a frozen version.
type NotDraftError struct {
	VersionID string
}

func (e *NotDraftError) Error() string {
	return fmt.Sprintf("version %s is frozen and cannot be modified", e.VersionID)
}

// NotFrozenError reports an activation attempted on a draft.
type NotFrozenError struct {
	VersionID string
}

func (e *NotFrozenError) Error() string {
	return fmt.Sprintf("version %s is still a draft and cannot be activated", e.VersionID)
}

// IncompleteContentError reports missing generated audio at activation time.
type IncompleteContentError struct {
	Stream    Stream
	VersionID string
	Missing   []string
}

func (e *IncompleteContentError) Error() string {
	return fmt.Sprintf("version %s (%s) has no generated audio for %v", e.VersionID, e.Stream, e.Missing)
}

// UnresolvedAnchorError reports a placement anchor that names a track absent
// from the active set, or a cycle in the placement graph.
type UnresolvedAnchorError struct {
	TrackID string
	Anchor  string
}

func (e *UnresolvedAnchorError) Error() string {
	return fmt.Sprintf("track %s anchors to %q which cannot be resolved", e.TrackID, e.Anchor)
}

// ProviderFailureError wraps an upstream synthesis failure. It always names
// the track it belongs to; one track failing never aborts its siblings.
type ProviderFailureError struct {
	Stream  Stream
	TrackID string
	Err     error
}

func (e *ProviderFailureError) Error() string {
	return fmt.Sprintf("generation failed for %s track %s: %v", e.Stream, e.TrackID, e.Err)
}

func (e *ProviderFailureError) Unwrap() error { return e.Err }

// ConflictError reports an optimistic-lock collision between two mutators of
// the same stream. The engine retries once before surfacing it.
type ConflictError struct {
	ProjectID string
	Stream    Stream
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent modification on stream %s of project %s", e.Stream, e.ProjectID)
}
