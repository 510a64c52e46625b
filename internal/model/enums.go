package model

// Stream identifies one of the three creative lineages of an ad.
type Stream string

const (
	StreamVoice Stream = "voice"
	StreamMusic Stream = "music"
	StreamSfx   Stream = "sfx"
)

var ValidStreams = []Stream{StreamVoice, StreamMusic, StreamSfx}

func (s Stream) String() string { return string(s) }

// IsValid reports whether s is a known stream.
func (s Stream) IsValid() bool {
	switch s {
	case StreamVoice, StreamMusic, StreamSfx:
		return true
	}
	return false
}

// VersionStatus is the lifecycle state of a version.
type VersionStatus string

const (
	StatusDraft  VersionStatus = "draft"
	StatusFrozen VersionStatus = "frozen"
)

// Creator identifies who produced a version.
type Creator string

const (
	CreatorUser      Creator = "user"
	CreatorAssistant Creator = "assistant"
)

// Provider names a synthesis vendor. Unknown providers are rejected when
// the adapter registry is built, not at request time.
type Provider string

const (
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderSuno       Provider = "suno"
	ProviderStableFX   Provider = "stablefx"
)

var ValidProviders = []Provider{ProviderElevenLabs, ProviderSuno, ProviderStableFX}

// Ad formats
type AdFormat string

const (
	FormatRadioSpot   AdFormat = "radio_spot"
	FormatPodcastSpot AdFormat = "podcast_spot"
	FormatSocialClip  AdFormat = "social_clip"
)

var ValidFormats = []AdFormat{FormatRadioSpot, FormatPodcastSpot, FormatSocialClip}

// Placement anchor sentinels. Any other anchor value is a track id.
const (
	AnchorStart    = "start"
	AnchorPrevious = "previous"
)
