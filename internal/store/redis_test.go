package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge/api/internal/model"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb), mr
}

func sampleVersion(id, projectID string) *model.Version {
	return &model.Version{
		ID:        id,
		ProjectID: projectID,
		Stream:    model.StreamVoice,
		Status:    model.StatusDraft,
		Content:   model.Content{Voice: &model.VoiceContent{}},
		CreatedAt: time.Now().UTC(),
		CreatedBy: model.CreatorUser,
	}
}

func TestProjectRoundTrip(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	p := &model.Project{
		ID:             "p1",
		Brief:          model.Brief{ClientDescription: "bakery spot", Format: model.FormatRadioSpot, DurationSeconds: 30},
		ActiveVersions: map[model.Stream]string{model.StreamVoice: "v1"},
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, st.SaveProject(ctx, p))

	got, err := st.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Brief.ClientDescription, got.Brief.ClientDescription)
	assert.Equal(t, "v1", got.ActiveVersions[model.StreamVoice])
}

func TestGetProjectNotFound(t *testing.T) {
	st, _ := setupStore(t)

	_, err := st.GetProject(context.Background(), "missing")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "project", nf.Kind)
}

func TestUpdateFlushesStagedWrites(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	v := sampleVersion("v1", "p1")
	err := st.Update(ctx, "p1", model.StreamVoice, func(txn *Txn) error {
		txn.PutVersion(v)
		txn.SetDraftID("p1", model.StreamVoice, v.ID)
		txn.AppendHistory("p1", model.StreamVoice, v.ID)
		return nil
	}, DraftKey("p1", model.StreamVoice))
	require.NoError(t, err)

	got, err := st.GetVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ProjectID)

	draftID, ok, err := st.GetDraftID(ctx, "p1", model.StreamVoice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", draftID)

	ids, err := st.ListStreamVersionIDs(ctx, "p1", model.StreamVoice)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids)
}

func TestUpdateClearDraft(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	err := st.Update(ctx, "p1", model.StreamVoice, func(txn *Txn) error {
		txn.SetDraftID("p1", model.StreamVoice, "v1")
		return nil
	}, DraftKey("p1", model.StreamVoice))
	require.NoError(t, err)

	err = st.Update(ctx, "p1", model.StreamVoice, func(txn *Txn) error {
		txn.ClearDraft("p1", model.StreamVoice)
		return nil
	}, DraftKey("p1", model.StreamVoice))
	require.NoError(t, err)

	_, ok, err := st.GetDraftID(ctx, "p1", model.StreamVoice)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateFnErrorAbortsWrites(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()

	wantErr := &model.NotDraftError{VersionID: "v1"}
	err := st.Update(ctx, "p1", model.StreamVoice, func(txn *Txn) error {
		txn.SetDraftID("p1", model.StreamVoice, "v1")
		return wantErr
	}, DraftKey("p1", model.StreamVoice))
	require.ErrorAs(t, err, &wantErr)

	_, ok, err := st.GetDraftID(ctx, "p1", model.StreamVoice)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateConflictOnWatchedKey(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()

	key := DraftKey("p1", model.StreamVoice)
	err := st.Update(ctx, "p1", model.StreamVoice, func(txn *Txn) error {
		// A second writer lands on the watched key mid-transaction.
		mr.Set(key, "other")
		txn.SetDraftID("p1", model.StreamVoice, "v1")
		return nil
	}, key)

	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "p1", conflict.ProjectID)
	assert.Equal(t, model.StreamVoice, conflict.Stream)
}
