package engine

import (
	"github.com/google/uuid"

	"github.com/adforge/api/internal/model"
)

// Content-affecting fields per unit type. Changing any of them makes a
// previously generated asset stale, so the merge below clears the audio ref
// and advances the generation sequence; touching anything else keeps it.
//
//	voice track: text, speaker, instructions, placement
//	music bed:   prompt, provider, durationSeconds
//	sfx track:   description, durationSeconds, placement

// VoiceTrackChanged reports whether a content-affecting field differs
// between two revisions of the same voice track.
func VoiceTrackChanged(old, new model.VoiceTrack) bool {
	return old.Text != new.Text ||
		old.Speaker != new.Speaker ||
		old.Instructions != new.Instructions ||
		old.Placement != new.Placement
}

// MusicChanged reports whether a content-affecting field of the music bed
// differs between two revisions.
func MusicChanged(old, new model.MusicContent) bool {
	return old.Prompt != new.Prompt ||
		old.Provider != new.Provider ||
		old.DurationSeconds != new.DurationSeconds
}

// SfxTrackChanged reports whether a content-affecting field differs between
// two revisions of the same sfx track.
func SfxTrackChanged(old, new model.SfxTrack) bool {
	return old.Description != new.Description ||
		old.DurationSeconds != new.DurationSeconds ||
		old.Placement != new.Placement
}

// emptyContent returns the blank scaffold for a stream.
func emptyContent(stream model.Stream) model.Content {
	switch stream {
	case model.StreamVoice:
		return model.Content{Voice: &model.VoiceContent{}}
	case model.StreamMusic:
		return model.Content{Music: &model.MusicContent{Provider: model.ProviderSuno}}
	default:
		return model.Content{Sfx: &model.SfxContent{}}
	}
}

// defaultPlacement chains a freshly appended track after its predecessor;
// the first track of a stream starts at the timeline origin.
func defaultPlacement(first bool) model.Placement {
	if first {
		return model.Placement{Anchor: model.AnchorStart}
	}
	return model.Placement{Anchor: model.AnchorPrevious}
}

// applyPatch merges a partial update into draft content. Units whose
// content-affecting fields change lose their audio ref and advance their
// generation sequence, so an in-flight synthesis started before the edit can
// never land.
func applyPatch(c *model.Content, patch model.ContentPatch) error {
	if patch.Voice != nil {
		if c.Voice == nil {
			c.Voice = &model.VoiceContent{}
		}
		for _, tp := range patch.Voice.Tracks {
			if tp.ID == "" {
				track := model.VoiceTrack{
					ID:        uuid.New().String(),
					Placement: defaultPlacement(len(c.Voice.Tracks) == 0),
				}
				if tp.Text != nil {
					track.Text = *tp.Text
				}
				if tp.Speaker != nil {
					track.Speaker = *tp.Speaker
				}
				if tp.Instructions != nil {
					track.Instructions = *tp.Instructions
				}
				if tp.Placement != nil {
					track.Placement = *tp.Placement
				}
				c.Voice.Tracks = append(c.Voice.Tracks, track)
				continue
			}

			idx := -1
			for i := range c.Voice.Tracks {
				if c.Voice.Tracks[i].ID == tp.ID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return &model.NotFoundError{Kind: "track", ID: tp.ID}
			}
			if tp.Remove {
				c.Voice.Tracks = append(c.Voice.Tracks[:idx], c.Voice.Tracks[idx+1:]...)
				continue
			}

			old := c.Voice.Tracks[idx]
			next := old
			if tp.Text != nil {
				next.Text = *tp.Text
			}
			if tp.Speaker != nil {
				next.Speaker = *tp.Speaker
			}
			if tp.Instructions != nil {
				next.Instructions = *tp.Instructions
			}
			if tp.Placement != nil {
				next.Placement = *tp.Placement
			}
			if VoiceTrackChanged(old, next) {
				next.AudioRef = nil
				next.GenSeq++
			}
			c.Voice.Tracks[idx] = next
		}
	}

	if patch.Music != nil {
		if c.Music == nil {
			c.Music = &model.MusicContent{}
		}
		old := *c.Music
		next := old
		if patch.Music.Prompt != nil {
			next.Prompt = *patch.Music.Prompt
		}
		if patch.Music.Provider != nil {
			next.Provider = *patch.Music.Provider
		}
		if patch.Music.DurationSeconds != nil {
			next.DurationSeconds = *patch.Music.DurationSeconds
		}
		if MusicChanged(old, next) {
			next.AudioRef = nil
			next.GenSeq++
		}
		*c.Music = next
	}

	if patch.Sfx != nil {
		if c.Sfx == nil {
			c.Sfx = &model.SfxContent{}
		}
		for _, tp := range patch.Sfx.Tracks {
			if tp.ID == "" {
				track := model.SfxTrack{
					ID:        uuid.New().String(),
					Placement: defaultPlacement(len(c.Sfx.Tracks) == 0),
				}
				if tp.Description != nil {
					track.Description = *tp.Description
				}
				if tp.DurationSeconds != nil {
					track.DurationSeconds = *tp.DurationSeconds
				}
				if tp.Placement != nil {
					track.Placement = *tp.Placement
				}
				c.Sfx.Tracks = append(c.Sfx.Tracks, track)
				continue
			}

			idx := -1
			for i := range c.Sfx.Tracks {
				if c.Sfx.Tracks[i].ID == tp.ID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return &model.NotFoundError{Kind: "track", ID: tp.ID}
			}
			if tp.Remove {
				c.Sfx.Tracks = append(c.Sfx.Tracks[:idx], c.Sfx.Tracks[idx+1:]...)
				continue
			}

			old := c.Sfx.Tracks[idx]
			next := old
			if tp.Description != nil {
				next.Description = *tp.Description
			}
			if tp.DurationSeconds != nil {
				next.DurationSeconds = *tp.DurationSeconds
			}
			if tp.Placement != nil {
				next.Placement = *tp.Placement
			}
			if SfxTrackChanged(old, next) {
				next.AudioRef = nil
				next.GenSeq++
			}
			c.Sfx.Tracks[idx] = next
		}
	}

	return nil
}

// sanitizeDerived reconciles assistant-produced content against its parent:
// units whose content-affecting fields changed lose their audio ref and
// advance their sequence, unchanged units keep the parent's generated audio.
func sanitizeDerived(parent, derived model.Content) model.Content {
	if derived.Voice != nil {
		oldByID := map[string]model.VoiceTrack{}
		if parent.Voice != nil {
			for _, t := range parent.Voice.Tracks {
				oldByID[t.ID] = t
			}
		}
		for i := range derived.Voice.Tracks {
			t := &derived.Voice.Tracks[i]
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
			old, ok := oldByID[t.ID]
			if !ok || VoiceTrackChanged(old, *t) {
				t.AudioRef = nil
				t.GenSeq = old.GenSeq + 1
			} else {
				t.AudioRef = old.AudioRef
				t.GenSeq = old.GenSeq
			}
		}
	}
	if derived.Music != nil {
		if parent.Music == nil || MusicChanged(*parent.Music, *derived.Music) {
			derived.Music.AudioRef = nil
			if parent.Music != nil {
				derived.Music.GenSeq = parent.Music.GenSeq + 1
			}
		} else {
			derived.Music.AudioRef = parent.Music.AudioRef
			derived.Music.GenSeq = parent.Music.GenSeq
		}
	}
	if derived.Sfx != nil {
		oldByID := map[string]model.SfxTrack{}
		if parent.Sfx != nil {
			for _, t := range parent.Sfx.Tracks {
				oldByID[t.ID] = t
			}
		}
		for i := range derived.Sfx.Tracks {
			t := &derived.Sfx.Tracks[i]
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
			old, ok := oldByID[t.ID]
			if !ok || SfxTrackChanged(old, *t) {
				t.AudioRef = nil
				t.GenSeq = old.GenSeq + 1
			} else {
				t.AudioRef = old.AudioRef
				t.GenSeq = old.GenSeq
			}
		}
	}
	return derived
}
