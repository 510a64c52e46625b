package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge/api/internal/model"
)

func TestVoiceTrackChanged(t *testing.T) {
	base := model.VoiceTrack{
		ID:        "t1",
		Text:      "hello",
		Speaker:   "narrator",
		Placement: model.Placement{Anchor: model.AnchorStart},
	}

	same := base
	assert.False(t, VoiceTrackChanged(base, same))

	edited := base
	edited.Text = "hi"
	assert.True(t, VoiceTrackChanged(base, edited))

	moved := base
	moved.Placement = model.Placement{Anchor: model.AnchorPrevious, OverlapSeconds: 0.5}
	assert.True(t, VoiceTrackChanged(base, moved))

	// AudioRef and GenSeq are derived state, not content.
	regenerated := base
	regenerated.AudioRef = &model.AudioRef{URL: "http://cdn/a.mp3", DurationSeconds: 2}
	regenerated.GenSeq = 7
	assert.False(t, VoiceTrackChanged(base, regenerated))
}

func TestMusicChanged(t *testing.T) {
	base := model.MusicContent{Prompt: "warm bed", Provider: model.ProviderSuno}

	assert.False(t, MusicChanged(base, base))

	longer := base
	longer.DurationSeconds = 20
	assert.True(t, MusicChanged(base, longer))

	swapped := base
	swapped.Provider = model.ProviderStableFX
	assert.True(t, MusicChanged(base, swapped))
}

func TestSfxTrackChanged(t *testing.T) {
	base := model.SfxTrack{ID: "s1", Description: "door slam", DurationSeconds: 1.5}

	assert.False(t, SfxTrackChanged(base, base))

	edited := base
	edited.Description = "door creak"
	assert.True(t, SfxTrackChanged(base, edited))
}

func TestApplyPatchRemoveTrack(t *testing.T) {
	content := model.Content{Voice: &model.VoiceContent{Tracks: []model.VoiceTrack{
		{ID: "t1", Text: "one"},
		{ID: "t2", Text: "two"},
	}}}

	err := applyPatch(&content, model.ContentPatch{Voice: &model.VoicePatch{
		Tracks: []model.VoiceTrackPatch{{ID: "t1", Remove: true}},
	}})
	require.NoError(t, err)
	require.Len(t, content.Voice.Tracks, 1)
	assert.Equal(t, "t2", content.Voice.Tracks[0].ID)
}

func TestApplyPatchUnknownTrack(t *testing.T) {
	content := model.Content{Voice: &model.VoiceContent{}}

	err := applyPatch(&content, model.ContentPatch{Voice: &model.VoicePatch{
		Tracks: []model.VoiceTrackPatch{{ID: "ghost", Remove: true}},
	}})
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestApplyPatchMusicInvalidation(t *testing.T) {
	content := model.Content{Music: &model.MusicContent{
		Prompt:   "bed",
		Provider: model.ProviderSuno,
		AudioRef: &model.AudioRef{URL: "http://cdn/bed.mp3", DurationSeconds: 30},
		GenSeq:   3,
	}}

	prompt := "brighter bed"
	err := applyPatch(&content, model.ContentPatch{Music: &model.MusicPatch{Prompt: &prompt}})
	require.NoError(t, err)
	assert.Nil(t, content.Music.AudioRef)
	assert.Equal(t, int64(4), content.Music.GenSeq)
}

func TestSanitizeDerivedKeepsUnchangedAudio(t *testing.T) {
	ref := &model.AudioRef{URL: "http://cdn/t1.mp3", DurationSeconds: 3}
	parent := model.Content{Voice: &model.VoiceContent{Tracks: []model.VoiceTrack{
		{ID: "t1", Text: "keep me", AudioRef: ref, GenSeq: 2},
		{ID: "t2", Text: "change me", AudioRef: ref, GenSeq: 5},
	}}}
	derived := model.Content{Voice: &model.VoiceContent{Tracks: []model.VoiceTrack{
		{ID: "t1", Text: "keep me"},
		{ID: "t2", Text: "changed"},
		{Text: "brand new"},
	}}}

	out := sanitizeDerived(parent, derived)
	tracks := out.Voice.Tracks

	assert.NotNil(t, tracks[0].AudioRef)
	assert.Equal(t, int64(2), tracks[0].GenSeq)

	assert.Nil(t, tracks[1].AudioRef)
	assert.Equal(t, int64(6), tracks[1].GenSeq)

	assert.NotEmpty(t, tracks[2].ID)
	assert.Nil(t, tracks[2].AudioRef)
}
