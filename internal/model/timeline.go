package model

// Default per-type gains applied by the composer. Voice carries the message,
// sfx punctuates it, music sits underneath. Callers may override per track.
const (
	DefaultGainVoice = 1.0
	DefaultGainSfx   = 0.7
	DefaultGainMusic = 0.25
)

// TimelineTrack is one fully resolved track of the mix.
type TimelineTrack struct {
	TrackID  string  `json:"trackId"`
	Type     Stream  `json:"type"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	URL      string  `json:"url"`
	Gain     float64 `json:"gain"`
}

// Timeline is the absolute-time layout of all active tracks, ready for
// rendering or export. Tracks are ordered by start time, then track id, so
// composing the same versions twice yields identical output.
type Timeline struct {
	Tracks        []TimelineTrack `json:"tracks"`
	TotalDuration float64         `json:"totalDuration"`
}
