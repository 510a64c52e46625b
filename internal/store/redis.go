package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/adforge/api/internal/model"
)

// Store persists projects, versions and per-stream draft pointers in Redis.
// It is the single source of truth: every mutation writes through before the
// caller reports success, and mutators run under optimistic WATCH
// transactions so racing writers surface as ConflictError instead of
// clobbering each other.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Key layout. Draft pointers live outside the project record so that the
// draft slot of one stream can be watched and swapped without contending on
// the project or on sibling streams.
func ProjectKey(id string) string { return "project:" + id }
func VersionKey(id string) string { return "version:" + id }

func DraftKey(projectID string, stream model.Stream) string {
	return fmt.Sprintf("stream-draft:%s:%s", projectID, stream)
}

func historyKey(projectID string, stream model.Stream) string {
	return fmt.Sprintf("stream-versions:%s:%s", projectID, stream)
}

// SaveProject writes a project record.
func (s *Store) SaveProject(ctx context.Context, p *model.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, ProjectKey(p.ID), data, 0).Err()
}

// GetProject loads a project record.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	data, err := s.rdb.Get(ctx, ProjectKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &model.NotFoundError{Kind: "project", ID: id}
		}
		return nil, err
	}
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetVersion loads a version record.
func (s *Store) GetVersion(ctx context.Context, id string) (*model.Version, error) {
	data, err := s.rdb.Get(ctx, VersionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &model.NotFoundError{Kind: "version", ID: id}
		}
		return nil, err
	}
	var v model.Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetDraftID returns the stream's current draft pointer, if any.
func (s *Store) GetDraftID(ctx context.Context, projectID string, stream model.Stream) (string, bool, error) {
	id, err := s.rdb.Get(ctx, DraftKey(projectID, stream)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

// ListStreamVersionIDs returns every version id ever created for the stream,
// oldest first.
func (s *Store) ListStreamVersionIDs(ctx context.Context, projectID string, stream model.Stream) ([]string, error) {
	return s.rdb.LRange(ctx, historyKey(projectID, stream), 0, -1).Result()
}

// Txn stages reads and writes for one optimistic transaction. Reads go
// through the watched connection; writes are buffered and flushed in a
// single MULTI/EXEC by Update.
type Txn struct {
	ctx      context.Context
	tx       *redis.Tx
	versions []*model.Version
	projects []*model.Project
	drafts   map[string]*string // draft key -> id, nil clears the slot
	history  map[string][]string
}

// GetProject reads a project through the watched connection.
func (t *Txn) GetProject(id string) (*model.Project, error) {
	data, err := t.tx.Get(t.ctx, ProjectKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &model.NotFoundError{Kind: "project", ID: id}
		}
		return nil, err
	}
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetVersion reads a version through the watched connection.
func (t *Txn) GetVersion(id string) (*model.Version, error) {
	data, err := t.tx.Get(t.ctx, VersionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &model.NotFoundError{Kind: "version", ID: id}
		}
		return nil, err
	}
	var v model.Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DraftID reads a stream's draft pointer through the watched connection.
func (t *Txn) DraftID(projectID string, stream model.Stream) (string, bool, error) {
	id, err := t.tx.Get(t.ctx, DraftKey(projectID, stream)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

// PutVersion stages a version write.
func (t *Txn) PutVersion(v *model.Version) {
	t.versions = append(t.versions, v)
}

// PutProject stages a project write.
func (t *Txn) PutProject(p *model.Project) {
	t.projects = append(t.projects, p)
}

// SetDraftID stages a draft-pointer write.
func (t *Txn) SetDraftID(projectID string, stream model.Stream, versionID string) {
	t.drafts[DraftKey(projectID, stream)] = &versionID
}

// ClearDraft stages removal of the draft pointer.
func (t *Txn) ClearDraft(projectID string, stream model.Stream) {
	t.drafts[DraftKey(projectID, stream)] = nil
}

// AppendHistory stages a lineage-index append for a newly created version.
func (t *Txn) AppendHistory(projectID string, stream model.Stream, versionID string) {
	key := historyKey(projectID, stream)
	t.history[key] = append(t.history[key], versionID)
}

// Update runs fn under WATCH of the given keys and flushes its staged writes
// atomically. A concurrent write to any watched key aborts the EXEC and is
// reported as ConflictError; the engine retries once before surfacing it.
func (s *Store) Update(ctx context.Context, projectID string, stream model.Stream, fn func(*Txn) error, watchKeys ...string) error {
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		txn := &Txn{
			ctx:     ctx,
			tx:      tx,
			drafts:  make(map[string]*string),
			history: make(map[string][]string),
		}
		if err := fn(txn); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, v := range txn.versions {
				data, err := json.Marshal(v)
				if err != nil {
					return err
				}
				pipe.Set(ctx, VersionKey(v.ID), data, 0)
			}
			for _, p := range txn.projects {
				data, err := json.Marshal(p)
				if err != nil {
					return err
				}
				pipe.Set(ctx, ProjectKey(p.ID), data, 0)
			}
			for key, id := range txn.drafts {
				if id == nil {
					pipe.Del(ctx, key)
				} else {
					pipe.Set(ctx, key, *id, 0)
				}
			}
			for key, ids := range txn.history {
				for _, id := range ids {
					pipe.RPush(ctx, key, id)
				}
			}
			return nil
		})
		return err
	}, watchKeys...)

	if errors.Is(err, redis.TxFailedErr) {
		return &model.ConflictError{ProjectID: projectID, Stream: stream}
	}
	return err
}
