package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/internal/store"
	"github.com/adforge/api/internal/timeline"
)

// Assistant derives revised draft content from a change request. The
// concrete implementation calls an LLM; the engine only sees the contract.
type Assistant interface {
	Revise(ctx context.Context, brief model.Brief, stream model.Stream, content model.Content, changeRequest string) (model.Content, error)
}

// Engine owns the per-stream version lifecycle: at most one draft per
// stream, frozen versions are immutable, and the active pointer only ever
// references frozen versions. All mutations run under the store's
// optimistic transactions and are retried once on conflict.
type Engine struct {
	store     *store.Store
	assistant Assistant
}

func New(st *store.Store, assistant Assistant) *Engine {
	return &Engine{store: st, assistant: assistant}
}

// retryOnConflict re-runs fn once when the store reports an optimistic-lock
// collision. A second collision is surfaced to the caller.
func retryOnConflict(fn func() error) error {
	err := fn()
	var conflict *model.ConflictError
	if errors.As(err, &conflict) {
		err = fn()
	}
	return err
}

// CreateProject initializes a project record from a brief.
func (e *Engine) CreateProject(ctx context.Context, brief model.Brief) (*model.Project, error) {
	now := time.Now().UTC()
	p := &model.Project{
		ID:             uuid.New().String(),
		Brief:          brief,
		ActiveVersions: make(map[model.Stream]string),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}
	return p, nil
}

// GetProject loads a project.
func (e *Engine) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return e.store.GetProject(ctx, id)
}

// GetVersion loads a version scoped to a project.
func (e *Engine) GetVersion(ctx context.Context, projectID, versionID string) (*model.Version, error) {
	v, err := e.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if v.ProjectID != projectID {
		return nil, &model.NotFoundError{Kind: "version", ID: versionID}
	}
	return v, nil
}

// CreateDraft opens the stream's draft slot. It fails with DraftExists when
// the slot is occupied, unless parentID forks a different lineage branch, in
// which case the prior draft pointer is discarded and the new draft starts
// from the named ancestor's content.
func (e *Engine) CreateDraft(ctx context.Context, projectID string, stream model.Stream, req model.CreateDraftRequest, by model.Creator) (*model.Version, error) {
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	var created *model.Version
	err := retryOnConflict(func() error {
		return e.store.Update(ctx, projectID, stream, func(txn *store.Txn) error {
			curID, hasDraft, err := txn.DraftID(projectID, stream)
			if err != nil {
				return err
			}
			forking := req.ParentID != nil && (!hasDraft || *req.ParentID != curID)
			if hasDraft && !forking {
				return &model.DraftExistsError{ProjectID: projectID, Stream: stream, DraftID: curID}
			}

			content := emptyContent(stream)
			if req.ParentID != nil {
				parent, err := txn.GetVersion(*req.ParentID)
				if err != nil {
					return err
				}
				if parent.ProjectID != projectID || parent.Stream != stream {
					return &model.NotFoundError{Kind: "version", ID: *req.ParentID}
				}
				content = parent.Content.Clone()
			}
			if req.Content != nil {
				if err := applyPatch(&content, *req.Content); err != nil {
					return err
				}
			}

			created = &model.Version{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				Stream:    stream,
				Status:    model.StatusDraft,
				ParentID:  req.ParentID,
				Content:   content,
				CreatedAt: time.Now().UTC(),
				CreatedBy: by,
			}
			txn.PutVersion(created)
			txn.SetDraftID(projectID, stream, created.ID)
			txn.AppendHistory(projectID, stream, created.ID)
			return nil
		}, store.DraftKey(projectID, stream))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateDraft merges a partial content patch into the stream's current
// draft. NotFound when versionID is not the current draft, NotDraft when it
// names a frozen version.
func (e *Engine) UpdateDraft(ctx context.Context, projectID string, stream model.Stream, versionID string, patch model.ContentPatch) (*model.Version, error) {
	var updated *model.Version
	err := retryOnConflict(func() error {
		return e.store.Update(ctx, projectID, stream, func(txn *store.Txn) error {
			curID, hasDraft, err := txn.DraftID(projectID, stream)
			if err != nil {
				return err
			}
			if !hasDraft || curID != versionID {
				if v, err := txn.GetVersion(versionID); err == nil && v.Status == model.StatusFrozen {
					return &model.NotDraftError{VersionID: versionID}
				}
				return &model.NotFoundError{Kind: "draft", ID: versionID}
			}

			v, err := txn.GetVersion(curID)
			if err != nil {
				return err
			}
			if !v.IsDraft() {
				return &model.NotDraftError{VersionID: versionID}
			}
			if err := applyPatch(&v.Content, patch); err != nil {
				return err
			}
			txn.PutVersion(v)
			updated = v
			return nil
		}, store.DraftKey(projectID, stream), store.VersionKey(versionID))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Freeze makes a draft immutable. With spawnChild, a new draft with
// identical content and parentID = versionID is created in the same
// transaction, so no reader ever observes a frozen version with an empty
// slot that a racing CreateDraft could claim.
func (e *Engine) Freeze(ctx context.Context, projectID string, stream model.Stream, versionID string, spawnChild bool) (frozen, child *model.Version, err error) {
	err = retryOnConflict(func() error {
		frozen, child = nil, nil
		return e.store.Update(ctx, projectID, stream, func(txn *store.Txn) error {
			v, err := txn.GetVersion(versionID)
			if err != nil {
				return err
			}
			if v.ProjectID != projectID || v.Stream != stream {
				return &model.NotFoundError{Kind: "version", ID: versionID}
			}
			if !v.IsDraft() {
				return &model.NotDraftError{VersionID: versionID}
			}

			v.Status = model.StatusFrozen
			txn.PutVersion(v)
			frozen = v

			if spawnChild {
				parentID := v.ID
				child = &model.Version{
					ID:        uuid.New().String(),
					ProjectID: projectID,
					Stream:    stream,
					Status:    model.StatusDraft,
					ParentID:  &parentID,
					Content:   v.Content.Clone(),
					CreatedAt: time.Now().UTC(),
					CreatedBy: v.CreatedBy,
				}
				txn.PutVersion(child)
				txn.SetDraftID(projectID, stream, child.ID)
				txn.AppendHistory(projectID, stream, child.ID)
				return nil
			}

			curID, hasDraft, err := txn.DraftID(projectID, stream)
			if err != nil {
				return err
			}
			if hasDraft && curID == versionID {
				txn.ClearDraft(projectID, stream)
			}
			return nil
		}, store.DraftKey(projectID, stream), store.VersionKey(versionID))
	})
	if err != nil {
		return nil, nil, err
	}
	return frozen, child, nil
}

// Activate points the stream at a frozen version and returns the recomposed
// timeline. It requires every unit of the version to carry generated audio;
// an in-flight generation is not waited for.
func (e *Engine) Activate(ctx context.Context, projectID string, stream model.Stream, versionID string) (*model.Project, *model.Timeline, error) {
	err := retryOnConflict(func() error {
		return e.store.Update(ctx, projectID, stream, func(txn *store.Txn) error {
			v, err := txn.GetVersion(versionID)
			if err != nil {
				return err
			}
			if v.ProjectID != projectID || v.Stream != stream {
				return &model.NotFoundError{Kind: "version", ID: versionID}
			}
			if v.Status != model.StatusFrozen {
				return &model.NotFrozenError{VersionID: versionID}
			}
			if missing := v.Content.MissingAudio(); len(missing) > 0 {
				return &model.IncompleteContentError{Stream: stream, VersionID: versionID, Missing: missing}
			}

			p, err := txn.GetProject(projectID)
			if err != nil {
				return err
			}
			if p.ActiveVersions == nil {
				p.ActiveVersions = make(map[model.Stream]string)
			}
			p.ActiveVersions[stream] = versionID
			p.UpdatedAt = time.Now().UTC()
			txn.PutProject(p)
			return nil
		}, store.ProjectKey(projectID), store.VersionKey(versionID))
	})
	if err != nil {
		return nil, nil, err
	}

	// Re-fetch rather than reuse in-memory state: another stream may have
	// been activated between the write and the compose.
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	tl, err := e.ComposeTimeline(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return p, tl, nil
}

// Iterate freezes the parent version (replacing any auto-spawned child) and
// installs a brand-new assistant-derived draft in one transaction, so no
// window exists in which the stream has no draft or a stale one.
func (e *Engine) Iterate(ctx context.Context, projectID string, stream model.Stream, parentVersionID, changeRequest string) (*model.Version, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	parent, err := e.GetVersion(ctx, projectID, parentVersionID)
	if err != nil {
		return nil, err
	}
	if parent.Stream != stream {
		return nil, &model.NotFoundError{Kind: "version", ID: parentVersionID}
	}

	// The assistant call is blocking I/O and runs outside the transaction.
	derived, err := e.assistant.Revise(ctx, p.Brief, stream, parent.Content.Clone(), changeRequest)
	if err != nil {
		return nil, err
	}
	derived = sanitizeDerived(parent.Content, derived)

	var created *model.Version
	err = retryOnConflict(func() error {
		return e.store.Update(ctx, projectID, stream, func(txn *store.Txn) error {
			cur, err := txn.GetVersion(parentVersionID)
			if err != nil {
				return err
			}
			if cur.IsDraft() {
				cur.Status = model.StatusFrozen
				txn.PutVersion(cur)
			}

			parentID := parentVersionID
			created = &model.Version{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				Stream:    stream,
				Status:    model.StatusDraft,
				ParentID:  &parentID,
				Content:   derived,
				CreatedAt: time.Now().UTC(),
				CreatedBy: model.CreatorAssistant,
			}
			txn.PutVersion(created)
			txn.SetDraftID(projectID, stream, created.ID)
			txn.AppendHistory(projectID, stream, created.ID)
			return nil
		}, store.DraftKey(projectID, stream), store.VersionKey(parentVersionID))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ComposeTimeline resolves the mix from the project's active versions. Reads
// go straight to the store so a timeline composed after any mutation
// reflects it.
func (e *Engine) ComposeTimeline(ctx context.Context, projectID string) (*model.Timeline, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var voice, music, sfx *model.Version
	for stream, id := range p.ActiveVersions {
		v, err := e.store.GetVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		switch stream {
		case model.StreamVoice:
			voice = v
		case model.StreamMusic:
			music = v
		case model.StreamSfx:
			sfx = v
		}
	}

	return timeline.Compose(voice, music, sfx, nil)
}

// StreamHistory lists every version of a stream, oldest first, plus the
// current draft and active pointers.
func (e *Engine) StreamHistory(ctx context.Context, projectID string, stream model.Stream) (*model.StreamHistoryResponse, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ids, err := e.store.ListStreamVersionIDs(ctx, projectID, stream)
	if err != nil {
		return nil, err
	}
	versions := make([]*model.Version, 0, len(ids))
	for _, id := range ids {
		v, err := e.store.GetVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	resp := &model.StreamHistoryResponse{
		Stream:   stream,
		ActiveID: p.ActiveVersions[stream],
		Versions: versions,
	}
	if draftID, ok, err := e.store.GetDraftID(ctx, projectID, stream); err != nil {
		return nil, err
	} else if ok {
		resp.DraftID = draftID
	}
	return resp, nil
}
