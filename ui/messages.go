package ui

import (
	"time"

	"memex/model"
	"memex/storage"
)

// entry is one block of the visible transcript. It is a display record only;
// the conversation history lives in model.Conversation.
type entry struct {
	Role      string // user, assistant, tool, error, info
	Content   string
	Rendered  string
	Timestamp time.Time
}

const (
	roleTool  = "tool"
	roleError = "error"
	roleInfo  = "info"
)

// Turn progress, relayed from the goroutine running Conversation.Send.
type (
	textDeltaMsg   struct{ Delta string }
	toolStartedMsg struct{ Name string }
	turnErrorMsg   struct{ Reason string }
	turnDoneMsg    struct {
		Result model.TurnResult
		Err    error
	}
	turnChannelClosedMsg struct{}
)

type memoryLoadedMsg struct {
	Count int
	Err   error
}

type markdownRenderedMsg struct {
	Index    int
	Rendered string
}

type toolLogMsg struct {
	Entries []storage.ToolInvocation
	Err     error
}

type clipboardMsg struct {
	Err error
}
