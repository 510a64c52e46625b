package model

import "time"

// Version is a snapshot of one stream's content. Once frozen it is never
// mutated again; further edits happen on a descendant draft.
type Version struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"projectId"`
	Stream    Stream        `json:"stream"`
	Status    VersionStatus `json:"status"`
	ParentID  *string       `json:"parentId,omitempty"`
	Content   Content       `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	CreatedBy Creator       `json:"createdBy"`
}

// IsDraft reports whether the version is still mutable.
func (v *Version) IsDraft() bool { return v.Status == StatusDraft }

// Content holds the stream-specific payload. Exactly one field is set,
// matching the owning stream.
type Content struct {
	Voice *VoiceContent `json:"voice,omitempty"`
	Music *MusicContent `json:"music,omitempty"`
	Sfx   *SfxContent   `json:"sfx,omitempty"`
}

// AudioRef points at a generated asset. Duration is the measured length of
// the asset, which is authoritative over any requested length.
type AudioRef struct {
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Placement declares where a track starts relative to another track.
// OverlapSeconds is positive for overlap with the anchor's tail and negative
// for a gap after it.
type Placement struct {
	Anchor         string  `json:"anchor"`
	OverlapSeconds float64 `json:"overlapSeconds"`
}

// VoiceContent is an ordered list of spoken tracks.
type VoiceContent struct {
	Tracks []VoiceTrack `json:"tracks"`
}

type VoiceTrack struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Speaker      string    `json:"speaker"`
	Instructions string    `json:"instructions,omitempty"`
	Placement    Placement `json:"placement"`
	AudioRef     *AudioRef `json:"audioRef,omitempty"`
	// GenSeq advances whenever the track's content changes or a new
	// generation starts; stale synthesis results are matched against it
	// and discarded.
	GenSeq int64 `json:"genSeq"`
}

// MusicContent is the single music bed of an ad.
type MusicContent struct {
	Prompt          string    `json:"prompt"`
	Provider        Provider  `json:"provider"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	AudioRef        *AudioRef `json:"audioRef,omitempty"`
	GenSeq          int64     `json:"genSeq"`
}

// SfxContent is an ordered list of sound effects.
type SfxContent struct {
	Tracks []SfxTrack `json:"tracks"`
}

type SfxTrack struct {
	ID              string    `json:"id"`
	Description     string    `json:"description"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	Placement       Placement `json:"placement"`
	AudioRef        *AudioRef `json:"audioRef,omitempty"`
	GenSeq          int64     `json:"genSeq"`
}

// Clone returns a deep copy of the content. Used when freezing spawns a
// child draft so the two records never share slices.
func (c Content) Clone() Content {
	out := Content{}
	if c.Voice != nil {
		vc := &VoiceContent{Tracks: make([]VoiceTrack, len(c.Voice.Tracks))}
		copy(vc.Tracks, c.Voice.Tracks)
		for i := range vc.Tracks {
			if ref := vc.Tracks[i].AudioRef; ref != nil {
				cp := *ref
				vc.Tracks[i].AudioRef = &cp
			}
		}
		out.Voice = vc
	}
	if c.Music != nil {
		mc := *c.Music
		if mc.AudioRef != nil {
			cp := *mc.AudioRef
			mc.AudioRef = &cp
		}
		out.Music = &mc
	}
	if c.Sfx != nil {
		sc := &SfxContent{Tracks: make([]SfxTrack, len(c.Sfx.Tracks))}
		copy(sc.Tracks, c.Sfx.Tracks)
		for i := range sc.Tracks {
			if ref := sc.Tracks[i].AudioRef; ref != nil {
				cp := *ref
				sc.Tracks[i].AudioRef = &cp
			}
		}
		out.Sfx = sc
	}
	return out
}

// MissingAudio lists the track ids (or "music") that still lack a generated
// audio reference. Activation requires an empty result.
func (c Content) MissingAudio() []string {
	var missing []string
	if c.Voice != nil {
		for _, t := range c.Voice.Tracks {
			if t.AudioRef == nil {
				missing = append(missing, t.ID)
			}
		}
	}
	if c.Music != nil && c.Music.AudioRef == nil {
		missing = append(missing, "music")
	}
	if c.Sfx != nil {
		for _, t := range c.Sfx.Tracks {
			if t.AudioRef == nil {
				missing = append(missing, t.ID)
			}
		}
	}
	return missing
}
