package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge/api/internal/model"
)

func voiceVersion(tracks ...model.VoiceTrack) *model.Version {
	return &model.Version{
		ID:      "voice-v1",
		Stream:  model.StreamVoice,
		Status:  model.StatusFrozen,
		Content: model.Content{Voice: &model.VoiceContent{Tracks: tracks}},
	}
}

func sfxVersion(tracks ...model.SfxTrack) *model.Version {
	return &model.Version{
		ID:      "sfx-v1",
		Stream:  model.StreamSfx,
		Status:  model.StatusFrozen,
		Content: model.Content{Sfx: &model.SfxContent{Tracks: tracks}},
	}
}

func musicVersion(mc model.MusicContent) *model.Version {
	return &model.Version{
		ID:      "music-v1",
		Stream:  model.StreamMusic,
		Status:  model.StatusFrozen,
		Content: model.Content{Music: &mc},
	}
}

func audio(url string, dur float64) *model.AudioRef {
	return &model.AudioRef{URL: url, DurationSeconds: dur}
}

func trackByID(t *testing.T, tl *model.Timeline, id string) model.TimelineTrack {
	t.Helper()
	for _, tr := range tl.Tracks {
		if tr.TrackID == id {
			return tr
		}
	}
	t.Fatalf("track %s not in timeline", id)
	return model.TimelineTrack{}
}

func TestComposeChainsVoiceTracks(t *testing.T) {
	voice := voiceVersion(
		model.VoiceTrack{
			ID:        "v1",
			Placement: model.Placement{Anchor: model.AnchorStart},
			AudioRef:  audio("http://cdn/v1.mp3", 4.0),
		},
		model.VoiceTrack{
			ID:        "v2",
			Placement: model.Placement{Anchor: model.AnchorPrevious},
			AudioRef:  audio("http://cdn/v2.mp3", 3.0),
		},
	)

	tl, err := Compose(voice, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, tl.Tracks, 2)

	v1 := trackByID(t, tl, "v1")
	v2 := trackByID(t, tl, "v2")
	assert.Equal(t, 0.0, v1.Start)
	assert.Equal(t, 4.0, v2.Start)
	assert.Equal(t, 7.0, tl.TotalDuration)
	assert.Equal(t, model.DefaultGainVoice, v1.Gain)
}

func TestComposeSfxAnchoredWithGap(t *testing.T) {
	voice := voiceVersion(
		model.VoiceTrack{
			ID:        "v1",
			Placement: model.Placement{Anchor: model.AnchorStart},
			AudioRef:  audio("http://cdn/v1.mp3", 4.0),
		},
		model.VoiceTrack{
			ID:        "v2",
			Placement: model.Placement{Anchor: model.AnchorPrevious},
			AudioRef:  audio("http://cdn/v2.mp3", 3.0),
		},
	)
	// Negative overlap leaves a gap after the anchor's tail.
	sfx := sfxVersion(model.SfxTrack{
		ID:        "s1",
		Placement: model.Placement{Anchor: "v2", OverlapSeconds: -1.5},
		AudioRef:  audio("http://cdn/s1.mp3", 2.0),
	})

	tl, err := Compose(voice, nil, sfx, nil)
	require.NoError(t, err)

	s1 := trackByID(t, tl, "s1")
	assert.Equal(t, 8.5, s1.Start)
	assert.Equal(t, model.DefaultGainSfx, s1.Gain)
	assert.Equal(t, 10.5, tl.TotalDuration)
}

func TestComposePositiveOverlap(t *testing.T) {
	voice := voiceVersion(model.VoiceTrack{
		ID:        "v1",
		Placement: model.Placement{Anchor: model.AnchorStart},
		AudioRef:  audio("http://cdn/v1.mp3", 4.0),
	})
	sfx := sfxVersion(model.SfxTrack{
		ID:        "s1",
		Placement: model.Placement{Anchor: "v1", OverlapSeconds: 1.0},
		AudioRef:  audio("http://cdn/s1.mp3", 2.0),
	})

	tl, err := Compose(voice, nil, sfx, nil)
	require.NoError(t, err)

	s1 := trackByID(t, tl, "s1")
	assert.Equal(t, 3.0, s1.Start)
}

func TestComposeClampsOverlapToAnchorStart(t *testing.T) {
	voice := voiceVersion(model.VoiceTrack{
		ID:        "v1",
		Placement: model.Placement{Anchor: model.AnchorStart},
		AudioRef:  audio("http://cdn/v1.mp3", 2.0),
	})
	// Overlap exceeds the anchor's length; the track must not start before
	// its anchor does.
	sfx := sfxVersion(model.SfxTrack{
		ID:        "s1",
		Placement: model.Placement{Anchor: "v1", OverlapSeconds: 10.0},
		AudioRef:  audio("http://cdn/s1.mp3", 1.0),
	})

	tl, err := Compose(voice, nil, sfx, nil)
	require.NoError(t, err)

	s1 := trackByID(t, tl, "s1")
	assert.Equal(t, 0.0, s1.Start)
}

func TestComposeMusicSpansTimeline(t *testing.T) {
	voice := voiceVersion(
		model.VoiceTrack{
			ID:        "v1",
			Placement: model.Placement{Anchor: model.AnchorStart},
			AudioRef:  audio("http://cdn/v1.mp3", 4.0),
		},
		model.VoiceTrack{
			ID:        "v2",
			Placement: model.Placement{Anchor: model.AnchorPrevious},
			AudioRef:  audio("http://cdn/v2.mp3", 3.0),
		},
	)
	music := musicVersion(model.MusicContent{
		Prompt:   "warm acoustic bed",
		Provider: model.ProviderSuno,
		AudioRef: audio("http://cdn/bed.mp3", 30.0),
	})

	tl, err := Compose(voice, music, nil, nil)
	require.NoError(t, err)

	m := trackByID(t, tl, "music")
	assert.Equal(t, 0.0, m.Start)
	assert.Equal(t, 7.0, m.Duration)
	assert.Equal(t, model.DefaultGainMusic, m.Gain)
	assert.Equal(t, 7.0, tl.TotalDuration)
}

func TestComposeMusicFixedDuration(t *testing.T) {
	voice := voiceVersion(model.VoiceTrack{
		ID:        "v1",
		Placement: model.Placement{Anchor: model.AnchorStart},
		AudioRef:  audio("http://cdn/v1.mp3", 4.0),
	})
	music := musicVersion(model.MusicContent{
		Prompt:          "stinger",
		Provider:        model.ProviderSuno,
		DurationSeconds: 10.0,
		AudioRef:        audio("http://cdn/bed.mp3", 10.2),
	})

	tl, err := Compose(voice, music, nil, nil)
	require.NoError(t, err)

	// Measured asset length wins over the requested one.
	m := trackByID(t, tl, "music")
	assert.Equal(t, 10.2, m.Duration)
	assert.Equal(t, 10.2, tl.TotalDuration)
}

func TestComposeMusicOnly(t *testing.T) {
	music := musicVersion(model.MusicContent{
		Prompt:          "solo bed",
		Provider:        model.ProviderSuno,
		DurationSeconds: 15.0,
	})

	tl, err := Compose(nil, music, nil, nil)
	require.NoError(t, err)
	require.Len(t, tl.Tracks, 1)
	assert.Equal(t, 15.0, tl.TotalDuration)
}

func TestComposeMusicOnlyMeasuredDuration(t *testing.T) {
	// No requested duration and nothing else on the timeline: the measured
	// asset length is all the bed has.
	music := musicVersion(model.MusicContent{
		Prompt:   "solo bed",
		Provider: model.ProviderSuno,
		AudioRef: audio("http://cdn/bed.mp3", 30.0),
	})

	tl, err := Compose(nil, music, nil, nil)
	require.NoError(t, err)
	require.Len(t, tl.Tracks, 1)
	assert.Equal(t, 30.0, tl.Tracks[0].Duration)
	assert.Equal(t, 30.0, tl.TotalDuration)
}

func TestComposeUnknownAnchor(t *testing.T) {
	sfx := sfxVersion(model.SfxTrack{
		ID:        "s1",
		Placement: model.Placement{Anchor: "ghost"},
		AudioRef:  audio("http://cdn/s1.mp3", 1.0),
	})

	_, err := Compose(nil, nil, sfx, nil)
	require.Error(t, err)
	var ua *model.UnresolvedAnchorError
	require.ErrorAs(t, err, &ua)
	assert.Equal(t, "s1", ua.TrackID)
	assert.Equal(t, "ghost", ua.Anchor)
}

func TestComposeAnchorCycle(t *testing.T) {
	sfx := sfxVersion(
		model.SfxTrack{
			ID:        "s1",
			Placement: model.Placement{Anchor: "s2"},
			AudioRef:  audio("http://cdn/s1.mp3", 1.0),
		},
		model.SfxTrack{
			ID:        "s2",
			Placement: model.Placement{Anchor: "s1"},
			AudioRef:  audio("http://cdn/s2.mp3", 1.0),
		},
	)

	_, err := Compose(nil, nil, sfx, nil)
	var ua *model.UnresolvedAnchorError
	require.ErrorAs(t, err, &ua)
}

func TestComposeGainOverrides(t *testing.T) {
	voice := voiceVersion(model.VoiceTrack{
		ID:        "v1",
		Placement: model.Placement{Anchor: model.AnchorStart},
		AudioRef:  audio("http://cdn/v1.mp3", 4.0),
	})

	tl, err := Compose(voice, nil, nil, map[string]float64{"v1": 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.5, trackByID(t, tl, "v1").Gain)
}

func TestComposeEmptyInputs(t *testing.T) {
	tl, err := Compose(nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, tl.Tracks)
	assert.Equal(t, 0.0, tl.TotalDuration)
}

func TestComposeDeterministic(t *testing.T) {
	voice := voiceVersion(
		model.VoiceTrack{
			ID:        "v1",
			Placement: model.Placement{Anchor: model.AnchorStart},
			AudioRef:  audio("http://cdn/v1.mp3", 3.333),
		},
		model.VoiceTrack{
			ID:        "v2",
			Placement: model.Placement{Anchor: model.AnchorPrevious, OverlapSeconds: 0.25},
			AudioRef:  audio("http://cdn/v2.mp3", 2.125),
		},
	)
	sfx := sfxVersion(model.SfxTrack{
		ID:        "s1",
		Placement: model.Placement{Anchor: "v1", OverlapSeconds: -0.5},
		AudioRef:  audio("http://cdn/s1.mp3", 1.0),
	})
	music := musicVersion(model.MusicContent{
		Prompt:   "bed",
		Provider: model.ProviderSuno,
		AudioRef: audio("http://cdn/bed.mp3", 30.0),
	})

	first, err := Compose(voice, music, sfx, nil)
	require.NoError(t, err)
	second, err := Compose(voice, music, sfx, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
