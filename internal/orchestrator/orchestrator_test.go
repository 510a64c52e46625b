package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge/api/internal/client"
	"github.com/adforge/api/internal/config"
	"github.com/adforge/api/internal/engine"
	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/internal/service"
	"github.com/adforge/api/internal/store"
	"github.com/adforge/api/internal/websocket"
)

type noopAssistant struct{}

func (noopAssistant) Revise(_ context.Context, _ model.Brief, _ model.Stream, content model.Content, _ string) (model.Content, error) {
	return content, nil
}

type workerFixture struct {
	worker *Worker
	engine *engine.Engine
	gen    *service.GenerationService
}

// setupWorker wires a worker against an in-process Redis. All synthesis
// clients are unconfigured, so they return deterministic mock assets.
func setupWorker(t *testing.T) *workerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { asynqClient.Close() })

	eng := engine.New(store.New(rdb), noopAssistant{})
	gen := service.NewGenerationService(rdb, asynqClient, eng)

	registry := client.NewRegistry(
		client.NewSpeechClient(&config.SpeechConfig{}),
		client.NewMusicClient(&config.MusicConfig{}),
		client.NewSfxClient(&config.SfxConfig{}),
	)

	hub := websocket.NewHub()
	go hub.Run()

	return &workerFixture{
		worker: NewWorker(gen, eng, registry, nil, hub),
		engine: eng,
		gen:    gen,
	}
}

func (f *workerFixture) startJob(t *testing.T, ctx context.Context, projectID string, stream model.Stream, versionID string, targets []string) (*asynq.Task, string) {
	t.Helper()
	units, err := f.engine.BeginGeneration(ctx, projectID, stream, versionID, targets)
	require.NoError(t, err)

	jobID := "job-" + versionID
	payload := service.GenerationTaskPayload{
		JobID: jobID,
		Payload: model.GenerateJobPayload{
			ProjectID: projectID,
			Stream:    stream,
			VersionID: versionID,
			Targets:   targets,
		},
		Units: units,
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, f.gen.SaveJob(ctx, &model.Job{
		ID: jobID, ProjectID: projectID, Stream: stream, VersionID: versionID,
		Status: model.JobStatusQueued,
	}))
	return asynq.NewTask(service.TaskTypeGenerate, data), jobID
}

func adBrief() model.Brief {
	return model.Brief{
		ClientDescription: "Gym chain new-year campaign",
		Format:            model.FormatRadioSpot,
		DurationSeconds:   30,
		VoiceProvider:     model.ProviderElevenLabs,
		MusicProvider:     model.ProviderSuno,
		SfxProvider:       model.ProviderStableFX,
	}
}

func strPtr(s string) *string { return &s }

func TestProcessTaskSynthesizesVoiceDraft(t *testing.T) {
	f := setupWorker(t)
	ctx := context.Background()

	p, err := f.engine.CreateProject(ctx, adBrief())
	require.NoError(t, err)
	draft, err := f.engine.CreateDraft(ctx, p.ID, model.StreamVoice, model.CreateDraftRequest{
		Content: &model.ContentPatch{Voice: &model.VoicePatch{Tracks: []model.VoiceTrackPatch{
			{Text: strPtr("New year, stronger you."), Speaker: strPtr("narrator")},
			{Text: strPtr("Join before February."), Speaker: strPtr("narrator")},
		}}},
	}, model.CreatorUser)
	require.NoError(t, err)

	task, jobID := f.startJob(t, ctx, p.ID, model.StreamVoice, draft.ID, nil)
	require.NoError(t, f.worker.ProcessTask(ctx, task))

	v, err := f.engine.GetVersion(ctx, p.ID, draft.ID)
	require.NoError(t, err)
	for _, track := range v.Content.Voice.Tracks {
		require.NotNil(t, track.AudioRef, "track %s has no audio", track.ID)
		assert.Contains(t, track.AudioRef.URL, "mock/voice")
		assert.Greater(t, track.AudioRef.DurationSeconds, 0.0)
	}

	status, err := f.gen.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, status.Status)
	assert.Equal(t, 100, status.Progress)
}

func TestProcessTaskMusicHonorsRequestedDuration(t *testing.T) {
	f := setupWorker(t)
	ctx := context.Background()

	p, err := f.engine.CreateProject(ctx, adBrief())
	require.NoError(t, err)
	dur := 20.0
	prompt := "driving synth bed"
	draft, err := f.engine.CreateDraft(ctx, p.ID, model.StreamMusic, model.CreateDraftRequest{
		Content: &model.ContentPatch{Music: &model.MusicPatch{Prompt: &prompt, DurationSeconds: &dur}},
	}, model.CreatorUser)
	require.NoError(t, err)

	task, _ := f.startJob(t, ctx, p.ID, model.StreamMusic, draft.ID, nil)
	require.NoError(t, f.worker.ProcessTask(ctx, task))

	v, err := f.engine.GetVersion(ctx, p.ID, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, v.Content.Music.AudioRef)
	assert.Equal(t, 20.0, v.Content.Music.AudioRef.DurationSeconds)
}

func TestProcessTaskStaleUnitDiscarded(t *testing.T) {
	f := setupWorker(t)
	ctx := context.Background()

	p, err := f.engine.CreateProject(ctx, adBrief())
	require.NoError(t, err)
	draft, err := f.engine.CreateDraft(ctx, p.ID, model.StreamVoice, model.CreateDraftRequest{
		Content: &model.ContentPatch{Voice: &model.VoicePatch{Tracks: []model.VoiceTrackPatch{
			{Text: strPtr("Original read."), Speaker: strPtr("narrator")},
		}}},
	}, model.CreatorUser)
	require.NoError(t, err)
	trackID := draft.Content.Voice.Tracks[0].ID

	task, jobID := f.startJob(t, ctx, p.ID, model.StreamVoice, draft.ID, nil)

	// Edit between snapshot and processing; the job's results are stale.
	_, err = f.engine.UpdateDraft(ctx, p.ID, model.StreamVoice, draft.ID, model.ContentPatch{
		Voice: &model.VoicePatch{Tracks: []model.VoiceTrackPatch{
			{ID: trackID, Text: strPtr("Edited read.")},
		}},
	})
	require.NoError(t, err)

	require.NoError(t, f.worker.ProcessTask(ctx, task))

	v, err := f.engine.GetVersion(ctx, p.ID, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, v.Content.Voice.Tracks[0].AudioRef)

	// The job itself still completes; discarding is not a failure.
	status, err := f.gen.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusSucceeded, status.Status)
}

func TestUpdateJobProgressNeverRegresses(t *testing.T) {
	f := setupWorker(t)
	ctx := context.Background()

	require.NoError(t, f.gen.SaveJob(ctx, &model.Job{
		ID: "job-1", Status: model.JobStatusQueued,
	}))

	require.NoError(t, f.gen.UpdateJobProgress(ctx, "job-1", 50))
	// A late report from a slower unit must not wind the job back.
	require.NoError(t, f.gen.UpdateJobProgress(ctx, "job-1", 20))

	status, err := f.gen.GetStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 50, status.Progress)
	assert.Equal(t, model.JobStatusRunning, status.Status)
}

func TestProcessTaskUnknownProviderFailsUnit(t *testing.T) {
	f := setupWorker(t)
	ctx := context.Background()

	brief := adBrief()
	brief.VoiceProvider = "unknown-vendor"
	p, err := f.engine.CreateProject(ctx, brief)
	require.NoError(t, err)
	draft, err := f.engine.CreateDraft(ctx, p.ID, model.StreamVoice, model.CreateDraftRequest{
		Content: &model.ContentPatch{Voice: &model.VoicePatch{Tracks: []model.VoiceTrackPatch{
			{Text: strPtr("Line."), Speaker: strPtr("narrator")},
		}}},
	}, model.CreatorUser)
	require.NoError(t, err)

	task, jobID := f.startJob(t, ctx, p.ID, model.StreamVoice, draft.ID, nil)
	require.NoError(t, f.worker.ProcessTask(ctx, task))

	status, err := f.gen.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, status.Status)
	require.NotNil(t, status.Error)
}
