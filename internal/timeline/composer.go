// Package timeline turns the active versions of a project into an
// absolute-time mix layout. Composition is a pure function of its inputs:
// the same versions always yield the same timeline, byte for byte.
package timeline

import (
	"math"
	"sort"

	"github.com/adforge/api/internal/model"
)

// node is one placed track of the dependency graph.
type node struct {
	id      string
	typ     model.Stream
	dur     float64
	url     string
	anchor  string
	overlap float64
	prev    string // declared predecessor within the same stream
}

const (
	unvisited = iota
	visiting
	resolved
)

// Compose resolves track start times from declarative placements. The voice
// and sfx versions contribute anchored tracks; the music bed, when present,
// underlays them from the origin. overrides maps track ids to caller-chosen
// gains, replacing the per-type defaults.
//
// Anchors referring to tracks absent from the active set, and placement
// cycles, fail with UnresolvedAnchor; a track is never silently dropped.
func Compose(voice, music, sfx *model.Version, overrides map[string]float64) (*model.Timeline, error) {
	nodes := make(map[string]*node)
	var order []string

	addTrack := func(n *node) {
		nodes[n.id] = n
		order = append(order, n.id)
	}

	if voice != nil && voice.Content.Voice != nil {
		prev := ""
		for _, t := range voice.Content.Voice.Tracks {
			addTrack(&node{
				id:      t.ID,
				typ:     model.StreamVoice,
				dur:     trackDuration(t.AudioRef, 0),
				url:     trackURL(t.AudioRef),
				anchor:  t.Placement.Anchor,
				overlap: t.Placement.OverlapSeconds,
				prev:    prev,
			})
			prev = t.ID
		}
	}
	if sfx != nil && sfx.Content.Sfx != nil {
		prev := ""
		for _, t := range sfx.Content.Sfx.Tracks {
			addTrack(&node{
				id:      t.ID,
				typ:     model.StreamSfx,
				dur:     trackDuration(t.AudioRef, t.DurationSeconds),
				url:     trackURL(t.AudioRef),
				anchor:  t.Placement.Anchor,
				overlap: t.Placement.OverlapSeconds,
				prev:    prev,
			})
			prev = t.ID
		}
	}

	states := make(map[string]int, len(nodes))
	starts := make(map[string]float64, len(nodes))

	var resolve func(id string) (float64, error)
	resolve = func(id string) (float64, error) {
		if states[id] == resolved {
			return starts[id], nil
		}
		n := nodes[id]
		if states[id] == visiting {
			return 0, &model.UnresolvedAnchorError{TrackID: id, Anchor: n.anchor}
		}
		states[id] = visiting

		var start float64
		switch n.anchor {
		case model.AnchorStart:
			start = 0
		case model.AnchorPrevious:
			if n.prev == "" {
				start = 0
			} else {
				s, err := anchorEnd(nodes[n.prev], n, resolve)
				if err != nil {
					return 0, err
				}
				start = s
			}
		default:
			target, ok := nodes[n.anchor]
			if !ok {
				return 0, &model.UnresolvedAnchorError{TrackID: id, Anchor: n.anchor}
			}
			s, err := anchorEnd(target, n, resolve)
			if err != nil {
				return 0, err
			}
			start = s
		}

		start = roundMillis(start)
		starts[id] = start
		states[id] = resolved
		return start, nil
	}

	tracks := make([]model.TimelineTrack, 0, len(order)+1)
	for _, id := range order {
		start, err := resolve(id)
		if err != nil {
			return nil, err
		}
		n := nodes[id]
		tracks = append(tracks, model.TimelineTrack{
			TrackID:  id,
			Type:     n.typ,
			Start:    start,
			Duration: roundMillis(n.dur),
			URL:      n.url,
			Gain:     gainFor(n.typ, id, overrides),
		})
	}

	span := 0.0
	for _, t := range tracks {
		if end := t.Start + t.Duration; end > span {
			span = end
		}
	}

	if music != nil && music.Content.Music != nil {
		mc := music.Content.Music
		dur := span
		if mc.DurationSeconds > 0 || span == 0 {
			dur = trackDuration(mc.AudioRef, mc.DurationSeconds)
		}
		tracks = append(tracks, model.TimelineTrack{
			TrackID:  model.StreamMusic.String(),
			Type:     model.StreamMusic,
			Start:    0,
			Duration: roundMillis(dur),
			URL:      trackURL(mc.AudioRef),
			Gain:     gainFor(model.StreamMusic, model.StreamMusic.String(), overrides),
		})
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].Start != tracks[j].Start {
			return tracks[i].Start < tracks[j].Start
		}
		return tracks[i].TrackID < tracks[j].TrackID
	})

	total := 0.0
	for _, t := range tracks {
		if end := t.Start + t.Duration; end > total {
			total = end
		}
	}

	return &model.Timeline{
		Tracks:        tracks,
		TotalDuration: roundMillis(total),
	}, nil
}

// anchorEnd computes a dependent track's start against its anchor:
// anchor end minus the declared overlap, clamped so the dependent never
// begins before the anchor does.
func anchorEnd(target, n *node, resolve func(string) (float64, error)) (float64, error) {
	anchorStart, err := resolve(target.id)
	if err != nil {
		return 0, err
	}
	start := anchorStart + target.dur - n.overlap
	if start < anchorStart {
		start = anchorStart
	}
	return start, nil
}

// trackDuration prefers the measured length of the generated asset over the
// requested one, since synthesis rarely hits the target exactly.
func trackDuration(ref *model.AudioRef, requested float64) float64 {
	if ref != nil && ref.DurationSeconds > 0 {
		return ref.DurationSeconds
	}
	return requested
}

func trackURL(ref *model.AudioRef) string {
	if ref == nil {
		return ""
	}
	return ref.URL
}

func gainFor(typ model.Stream, trackID string, overrides map[string]float64) float64 {
	if g, ok := overrides[trackID]; ok {
		return g
	}
	switch typ {
	case model.StreamVoice:
		return model.DefaultGainVoice
	case model.StreamSfx:
		return model.DefaultGainSfx
	default:
		return model.DefaultGainMusic
	}
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}
