package model

import "time"

// Brief captures the client request that seeds all three streams.
type Brief struct {
	ClientDescription string   `json:"clientDescription" validate:"required,min=3"`
	Format            AdFormat `json:"format" validate:"required"`
	DurationSeconds   float64  `json:"durationSeconds" validate:"required,gt=0,lte=300"`
	Language          string   `json:"language,omitempty"`
	VoiceProvider     Provider `json:"voiceProvider,omitempty"`
	MusicProvider     Provider `json:"musicProvider,omitempty"`
	SfxProvider       Provider `json:"sfxProvider,omitempty"`
}

// Project groups the three streams of one ad. ActiveVersions is the only
// mutable pointer state; it is written exclusively by activate.
type Project struct {
	ID             string            `json:"id"`
	Brief          Brief             `json:"brief"`
	ActiveVersions map[Stream]string `json:"activeVersions"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}
