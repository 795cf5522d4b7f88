package domain

import "time"

// EventType discriminates pipeline events on the wire
type EventType string

// Event types in the order a stream may see them
const (
	EventConnectionEstablished EventType = "connection_established"
	EventSearchStarted         EventType = "search_started"
	EventStageStart            EventType = "stage_start"
	EventToken                 EventType = "token"
	EventStageEnd              EventType = "stage_end"
	EventCacheHit              EventType = "cache_hit"
	EventPipelineComplete      EventType = "pipeline_complete"
	EventError                 EventType = "error"
)

// Stage names in pipeline order
const (
	StageIntent   = "intent"
	StageSQLGen   = "sql_gen"
	StageValidate = "validate"
	StageExecute  = "execute"
	StageFormat   = "format"
)

// Event is one pipeline progress notification. Seq is stamped by the
// stream dispatcher and increases monotonically per request
type Event struct {
	Type       EventType `json:"event_type"`
	RequestID  string    `json:"request_id"`
	Seq        uint64    `json:"seq"`
	Stage      string    `json:"stage,omitempty"`
	Content    string    `json:"content,omitempty"`
	DurationMS float64   `json:"duration_ms,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	Result     *Result   `json:"result,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Terminal reports whether the event ends its request's stream
func (e Event) Terminal() bool {
	return e.Type == EventPipelineComplete || e.Type == EventError
}

// EventSink receives events in emit order. Implementations must not block
// the pipeline
type EventSink interface {
	Emit(ev Event)
}

// NopSink discards events, for non-streaming requests
type NopSink struct{}

// Emit implements EventSink
func (NopSink) Emit(Event) {}
