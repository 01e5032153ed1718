package model

import "fmt"

type EventKind int

const (
	EventText EventKind = iota
	EventToolCall
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventToolCall:
		return "tool_call"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// StreamEvent is the closed set of events a Provider emits. Only the field
// matching Kind is meaningful. Completed and Failed are terminal: a stream
// ends with exactly one of them.
type StreamEvent struct {
	Kind              EventKind
	Delta             string    // EventText
	ToolCall          *ToolCall // EventToolCall
	ContinuationToken string    // EventCompleted
	Reason            string    // EventFailed
}

func TextEvent(delta string) StreamEvent {
	return StreamEvent{Kind: EventText, Delta: delta}
}

func ToolCallEvent(call ToolCall) StreamEvent {
	return StreamEvent{Kind: EventToolCall, ToolCall: &call}
}

func CompletedEvent(token string) StreamEvent {
	return StreamEvent{Kind: EventCompleted, ContinuationToken: token}
}

func FailedEvent(reason string) StreamEvent {
	return StreamEvent{Kind: EventFailed, Reason: reason}
}

// IsTerminal reports whether the event ends a stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventFailed
}
