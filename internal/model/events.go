package model

// Progress event names. For every generation task "generating" is delivered
// before its "ready" or "failed"; across tracks no ordering is guaranteed,
// so consumers key state by Index, never by arrival order.
const (
	EventGenerating = "generating"
	EventReady      = "ready"
	EventFailed     = "failed"
	EventComplete   = "complete"
	EventPing       = "ping"
	EventPong       = "pong"
)

// ProgressEvent is one discriminated progress message. Optional fields are
// populated per event:
//
//	generating: Stream, Index, Total
//	ready:      Stream, Index, URL
//	failed:     Stream, Index, Error
//	complete:   Success
type ProgressEvent struct {
	Event   string `json:"event"`
	Stream  Stream `json:"stream,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Total   int    `json:"total,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// Generating builds the event announcing that synthesis of one unit started.
func Generating(stream Stream, index, total int) ProgressEvent {
	i := index
	return ProgressEvent{Event: EventGenerating, Stream: stream, Index: &i, Total: total}
}

// Ready builds the per-unit success event.
func Ready(stream Stream, index int, url string) ProgressEvent {
	i := index
	return ProgressEvent{Event: EventReady, Stream: stream, Index: &i, URL: url}
}

// Failed builds the per-unit failure event.
func Failed(stream Stream, index int, err error) ProgressEvent {
	i := index
	return ProgressEvent{Event: EventFailed, Stream: stream, Index: &i, Error: err.Error()}
}

// Complete builds the terminal event of a generation run.
func Complete(success bool) ProgressEvent {
	s := success
	return ProgressEvent{Event: EventComplete, Success: &s}
}
