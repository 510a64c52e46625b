// Package orchestrator runs generation jobs: it fans provider calls out
// concurrently across the units of a draft and writes results back through
// the engine, where stale ones are discarded by sequence number.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/adforge/api/internal/client"
	"github.com/adforge/api/internal/engine"
	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/internal/service"
	"github.com/adforge/api/internal/websocket"
)

// Worker processes generation tasks from the queue.
type Worker struct {
	genService *service.GenerationService
	engine     *engine.Engine
	registry   *client.Registry
	storage    client.StorageClient
	hub        *websocket.Hub
}

// NewWorker creates a generation worker. storage may be nil; vendor URLs are
// then used directly instead of being re-hosted.
func NewWorker(genService *service.GenerationService, eng *engine.Engine, registry *client.Registry, storage client.StorageClient, hub *websocket.Hub) *Worker {
	return &Worker{
		genService: genService,
		engine:     eng,
		registry:   registry,
		storage:    storage,
		hub:        hub,
	}
}

// unitOutcome is the per-unit result collected from the fan-out.
type unitOutcome struct {
	trackID string
	err     error
}

// ProcessTask handles one generation job. Units run concurrently; each one
// emits generating before its ready or failed, and a failing unit never
// aborts its siblings. The job's complete event carries overall success.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.GenerationTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := payload.JobID
	stream := payload.Payload.Stream
	log.Printf("Starting generation job %s (%s, %d units)", jobID, stream, len(payload.Units))

	project, err := w.engine.GetProject(ctx, payload.Payload.ProjectID)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("project lookup failed: %v", err))
		return err
	}

	if len(payload.Units) == 0 {
		if err := w.genService.CompleteJob(ctx, jobID, nil); err != nil {
			return err
		}
		w.hub.BroadcastEvent(jobID, model.Complete(true))
		return nil
	}

	w.updateProgress(ctx, jobID, 5)

	var (
		wg       sync.WaitGroup
		outcomes = make(chan unitOutcome, len(payload.Units))
		done     int
		mu       sync.Mutex
	)

	for _, unit := range payload.Units {
		wg.Add(1)
		go func(unit engine.GenUnit) {
			defer wg.Done()
			err := w.processUnit(ctx, jobID, project, stream, unit)
			outcomes <- unitOutcome{trackID: unit.TrackID, err: err}

			// The job record is read-modify-write; the save must not
			// interleave with a sibling's.
			mu.Lock()
			done++
			w.updateProgress(ctx, jobID, 5+done*90/len(payload.Units))
			mu.Unlock()
		}(unit)
	}
	wg.Wait()
	close(outcomes)

	var failures []string
	for outcome := range outcomes {
		if outcome.err != nil {
			failures = append(failures, outcome.trackID)
			log.Printf("Generation job %s: %v", jobID, outcome.err)
		}
	}

	if err := w.genService.CompleteJob(ctx, jobID, failures); err != nil {
		w.failJob(ctx, jobID, "failed to save result")
		return err
	}
	w.hub.BroadcastEvent(jobID, model.Complete(len(failures) == 0))
	log.Printf("Generation job %s completed (%d/%d units ok)", jobID, len(payload.Units)-len(failures), len(payload.Units))
	return nil
}

// processUnit synthesizes one unit and applies its result. The result lands
// on the stream's current draft only while the unit's sequence still
// matches; an edit or iterate racing the synthesis makes it a no-op.
func (w *Worker) processUnit(ctx context.Context, jobID string, project *model.Project, stream model.Stream, unit engine.GenUnit) error {
	w.hub.BroadcastEvent(jobID, model.Generating(stream, unit.Index, unit.Total))

	req, provider, err := buildRequest(project.Brief, stream, unit)
	if err != nil {
		w.hub.BroadcastEvent(jobID, model.Failed(stream, unit.Index, err))
		return &model.ProviderFailureError{Stream: stream, TrackID: unit.TrackID, Err: err}
	}

	synth, err := w.registry.ForStream(stream, provider)
	if err != nil {
		w.hub.BroadcastEvent(jobID, model.Failed(stream, unit.Index, err))
		return &model.ProviderFailureError{Stream: stream, TrackID: unit.TrackID, Err: err}
	}

	result, err := synth.Synthesize(ctx, req)
	if err != nil {
		w.hub.BroadcastEvent(jobID, model.Failed(stream, unit.Index, err))
		return &model.ProviderFailureError{Stream: stream, TrackID: unit.TrackID, Err: err}
	}

	url := result.URL
	if w.storage != nil {
		key := fmt.Sprintf("assets/%s/%s/%s.mp3", project.ID, jobID, unit.TrackID)
		hosted, err := w.storage.CopyFromURL(ctx, key, result.URL)
		if err != nil {
			log.Printf("Re-hosting %s failed, keeping vendor URL: %v", unit.TrackID, err)
		} else {
			url = hosted
		}
	}

	applied, err := w.engine.ApplyGenerationResult(ctx, project.ID, stream, unit.TrackID, unit.Seq, model.AudioRef{
		URL:             url,
		DurationSeconds: result.MeasuredDurationSeconds,
	})
	if err != nil {
		w.hub.BroadcastEvent(jobID, model.Failed(stream, unit.Index, err))
		return &model.ProviderFailureError{Stream: stream, TrackID: unit.TrackID, Err: err}
	}
	if !applied {
		log.Printf("Generation job %s: stale result for %s discarded (seq %d)", jobID, unit.TrackID, unit.Seq)
	}

	w.hub.BroadcastEvent(jobID, model.Ready(stream, unit.Index, url))
	return nil
}

// buildRequest shapes the provider request for one unit and names the
// provider that should serve it.
func buildRequest(brief model.Brief, stream model.Stream, unit engine.GenUnit) (client.SynthesisRequest, model.Provider, error) {
	switch stream {
	case model.StreamVoice:
		if unit.Voice == nil {
			return nil, "", fmt.Errorf("voice unit %s has no track snapshot", unit.TrackID)
		}
		return client.VoiceSynthesis{
			Text:         unit.Voice.Text,
			Speaker:      unit.Voice.Speaker,
			Instructions: unit.Voice.Instructions,
			Language:     brief.Language,
		}, brief.VoiceProvider, nil
	case model.StreamMusic:
		if unit.Music == nil {
			return nil, "", fmt.Errorf("music unit has no content snapshot")
		}
		return client.MusicSynthesis{
			Prompt:          unit.Music.Prompt,
			DurationSeconds: unit.Music.DurationSeconds,
		}, unit.Music.Provider, nil
	case model.StreamSfx:
		if unit.Sfx == nil {
			return nil, "", fmt.Errorf("sfx unit %s has no track snapshot", unit.TrackID)
		}
		return client.SfxSynthesis{
			Description:     unit.Sfx.Description,
			DurationSeconds: unit.Sfx.DurationSeconds,
		}, brief.SfxProvider, nil
	}
	return nil, "", fmt.Errorf("unknown stream %q", stream)
}

func (w *Worker) updateProgress(ctx context.Context, jobID string, progress int) {
	if err := w.genService.UpdateJobProgress(ctx, jobID, progress); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
}

func (w *Worker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.genService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastEvent(jobID, model.Complete(false))
}
