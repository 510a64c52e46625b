package model

// ContentPatch is the partial-update shape accepted by updateDraft. Nil
// pointer fields are left untouched; set fields are merged into the draft.
// Track patches address existing tracks by id; a patch with an empty id
// appends a new track, Remove drops one.
type ContentPatch struct {
	Voice *VoicePatch `json:"voice,omitempty"`
	Music *MusicPatch `json:"music,omitempty"`
	Sfx   *SfxPatch   `json:"sfx,omitempty"`
}

type VoicePatch struct {
	Tracks []VoiceTrackPatch `json:"tracks"`
}

type VoiceTrackPatch struct {
	ID           string     `json:"id,omitempty"`
	Remove       bool       `json:"remove,omitempty"`
	Text         *string    `json:"text,omitempty"`
	Speaker      *string    `json:"speaker,omitempty"`
	Instructions *string    `json:"instructions,omitempty"`
	Placement    *Placement `json:"placement,omitempty"`
}

type MusicPatch struct {
	Prompt          *string   `json:"prompt,omitempty"`
	Provider        *Provider `json:"provider,omitempty"`
	DurationSeconds *float64  `json:"durationSeconds,omitempty"`
}

type SfxPatch struct {
	Tracks []SfxTrackPatch `json:"tracks"`
}

type SfxTrackPatch struct {
	ID              string     `json:"id,omitempty"`
	Remove          bool       `json:"remove,omitempty"`
	Description     *string    `json:"description,omitempty"`
	DurationSeconds *float64   `json:"durationSeconds,omitempty"`
	Placement       *Placement `json:"placement,omitempty"`
}
