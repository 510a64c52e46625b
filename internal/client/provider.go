package client

import (
	"context"
	"fmt"

	"github.com/adforge/api/internal/model"
)

// SynthesisRequest is the closed set of things the orchestrator can ask a
// provider for. The sealed marker method keeps the union closed: adding a
// variant means touching every adapter, which is the point.
type SynthesisRequest interface {
	synthesisRequest()
}

// VoiceSynthesis asks for one spoken track.
type VoiceSynthesis struct {
	Text         string
	Speaker      string
	Instructions string
	Language     string
}

func (VoiceSynthesis) synthesisRequest() {}

// MusicSynthesis asks for the music bed.
type MusicSynthesis struct {
	Prompt          string
	DurationSeconds float64
}

func (MusicSynthesis) synthesisRequest() {}

// SfxSynthesis asks for one sound effect.
type SfxSynthesis struct {
	Description     string
	DurationSeconds float64
}

func (SfxSynthesis) synthesisRequest() {}

// SynthesisResult is the uniform adapter output. MeasuredDurationSeconds is
// the asset's actual length as reported by the vendor, which downstream
// composition trusts over any requested length.
type SynthesisResult struct {
	URL                     string
	MeasuredDurationSeconds float64
}

// Synthesizer is the uniform interface over heterogeneous generators.
// Failures are always recoverable at the orchestrator level: they surface
// per track and never touch version records.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
}

// Registry maps (stream, provider) to a concrete adapter. Unknown providers
// fail here, at construction of the generation run, never as a runtime
// string branch inside an adapter.
type Registry struct {
	speech *SpeechClient
	music  *MusicClient
	sfx    *SfxClient
}

func NewRegistry(speech *SpeechClient, music *MusicClient, sfx *SfxClient) *Registry {
	return &Registry{speech: speech, music: music, sfx: sfx}
}

// ForStream resolves the adapter serving a stream's configured provider.
// An empty provider selects the stream's default vendor.
func (r *Registry) ForStream(stream model.Stream, p model.Provider) (Synthesizer, error) {
	switch stream {
	case model.StreamVoice:
		if p == "" || p == model.ProviderElevenLabs {
			return r.speech, nil
		}
	case model.StreamMusic:
		if p == "" || p == model.ProviderSuno {
			return r.music, nil
		}
	case model.StreamSfx:
		if p == "" || p == model.ProviderStableFX || p == model.ProviderElevenLabs {
			return r.sfx, nil
		}
	}
	return nil, fmt.Errorf("no adapter for provider %q on stream %s", p, stream)
}
