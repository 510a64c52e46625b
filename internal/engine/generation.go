package engine

import (
	"context"

	"github.com/adforge/api/internal/model"
	"github.com/adforge/api/internal/store"
)

// MusicTrackID addresses the single music bed of a draft in generation
// targets and results.
const MusicTrackID = "music"

// GenUnit is a snapshot of one unit of content handed to the orchestrator.
// Seq is the unit's generation sequence after the bump performed by
// BeginGeneration; a result only lands while the stored sequence still
// equals it.
type GenUnit struct {
	TrackID string
	Index   int
	Total   int
	Seq     int64
	Voice   *model.VoiceTrack
	Music   *model.MusicContent
	Sfx     *model.SfxTrack
}

// BeginGeneration advances the generation sequence of every targeted unit
// of the draft and returns their snapshots. An empty target list selects
// every unit. The bump supersedes any in-flight synthesis for the same
// units: their results arrive carrying the old sequence and are discarded.
func (e *Engine) BeginGeneration(ctx context.Context, projectID string, stream model.Stream, versionID string, targets []string) ([]GenUnit, error) {
	wanted := make(map[string]bool, len(targets))
	for _, t := range targets {
		wanted[t] = true
	}
	all := len(targets) == 0

	var units []GenUnit
	err := retryOnConflict(func() error {
		units = nil
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

			switch stream {
			case model.StreamVoice:
				if v.Content.Voice == nil {
					break
				}
				for i := range v.Content.Voice.Tracks {
					t := &v.Content.Voice.Tracks[i]
					if !all && !wanted[t.ID] {
						continue
					}
					t.GenSeq++
					snap := *t
					units = append(units, GenUnit{TrackID: t.ID, Index: i, Seq: t.GenSeq, Voice: &snap})
				}
			case model.StreamMusic:
				if v.Content.Music == nil {
					break
				}
				if all || wanted[MusicTrackID] {
					v.Content.Music.GenSeq++
					snap := *v.Content.Music
					units = append(units, GenUnit{TrackID: MusicTrackID, Index: 0, Seq: snap.GenSeq, Music: &snap})
				}
			case model.StreamSfx:
				if v.Content.Sfx == nil {
					break
				}
				for i := range v.Content.Sfx.Tracks {
					t := &v.Content.Sfx.Tracks[i]
					if !all && !wanted[t.ID] {
						continue
					}
					t.GenSeq++
					snap := *t
					units = append(units, GenUnit{TrackID: t.ID, Index: i, Seq: t.GenSeq, Sfx: &snap})
				}
			}

			txn.PutVersion(v)
			return nil
		}, store.DraftKey(projectID, stream), store.VersionKey(versionID))
	})
	if err != nil {
		return nil, err
	}
	for i := range units {
		units[i].Total = len(units)
	}
	return units, nil
}

// ApplyGenerationResult writes a finished synthesis back into the stream's
// current draft. The draft may be a different version than the one the run
// started on (freeze and iterate both swap the slot); the result still lands
// as long as the unit exists there with a matching sequence. It reports
// whether the result was applied or discarded as stale.
func (e *Engine) ApplyGenerationResult(ctx context.Context, projectID string, stream model.Stream, trackID string, seq int64, ref model.AudioRef) (bool, error) {
	applied := false
	err := retryOnConflict(func() error {
		applied = false
		return e.store.Update(ctx, projectID, stream, func(txn *store.Txn) error {
			curID, hasDraft, err := txn.DraftID(projectID, stream)
			if err != nil {
				return err
			}
			if !hasDraft {
				return nil
			}
			v, err := txn.GetVersion(curID)
			if err != nil {
				return err
			}

			switch stream {
			case model.StreamVoice:
				if v.Content.Voice == nil {
					return nil
				}
				for i := range v.Content.Voice.Tracks {
					t := &v.Content.Voice.Tracks[i]
					if t.ID == trackID && t.GenSeq == seq {
						r := ref
						t.AudioRef = &r
						applied = true
					}
				}
			case model.StreamMusic:
				if v.Content.Music == nil || trackID != MusicTrackID {
					return nil
				}
				if v.Content.Music.GenSeq == seq {
					r := ref
					v.Content.Music.AudioRef = &r
					applied = true
				}
			case model.StreamSfx:
				if v.Content.Sfx == nil {
					return nil
				}
				for i := range v.Content.Sfx.Tracks {
					t := &v.Content.Sfx.Tracks[i]
					if t.ID == trackID && t.GenSeq == seq {
						r := ref
						t.AudioRef = &r
						applied = true
					}
				}
			}

			if applied {
				txn.PutVersion(v)
			}
			return nil
		}, store.DraftKey(projectID, stream))
	})
	return applied, err
}
