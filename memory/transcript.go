// Package memory stores finished turns in the knowledge graph and rebuilds
// recent exchanges from it at startup.
package memory

import (
	"regexp"
	"strings"
)

const (
	userMarker      = "User: "
	assistantMarker = "Memex: "

	// ConversationFormat tags ingested turns so they can be found again.
	ConversationFormat = "conversation"
)

// toolAnnotation matches the "  [tool_name]" lines written between the two
// segments of a turn.
var toolAnnotation = regexp.MustCompile(`^  \[[A-Za-z0-9_.:-]+\]$`)

// FormatTurn renders one exchange as plain text:
//
//	User: <user text>
//
//	  [tool_a]
//	  [tool_b]
//
//	Memex: <assistant text>
//
// The tool block is omitted when no tools ran.
func FormatTurn(userText, assistantText string, toolNames []string) string {
	parts := []string{userMarker + userText, ""}
	if len(toolNames) > 0 {
		for _, name := range toolNames {
			parts = append(parts, "  ["+name+"]")
		}
		parts = append(parts, "")
	}
	parts = append(parts, assistantMarker+assistantText)
	return strings.Join(parts, "\n")
}

// ParseTurn recovers the user and assistant segments of a formatted turn. A
// line starting with a marker opens that segment; other lines extend the open
// segment; tool annotations are dropped. ok is false when either segment is
// missing or empty.
//
// The format has no escaping: a message line that itself starts with a marker
// starts a new segment.
func ParseTurn(text string) (userText, assistantText string, ok bool) {
	var (
		user, assistant  strings.Builder
		current          *strings.Builder
		sawUser, sawAsst bool
	)

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, userMarker):
			user.Reset()
			user.WriteString(strings.TrimPrefix(line, userMarker))
			current, sawUser = &user, true
		case strings.HasPrefix(line, assistantMarker):
			assistant.Reset()
			assistant.WriteString(strings.TrimPrefix(line, assistantMarker))
			current, sawAsst = &assistant, true
		case toolAnnotation.MatchString(line):
			continue
		case current != nil:
			current.WriteByte('\n')
			current.WriteString(line)
		}
	}

	userText = strings.TrimSpace(user.String())
	assistantText = strings.TrimSpace(assistant.String())
	if !sawUser || !sawAsst || userText == "" || assistantText == "" {
		return "", "", false
	}
	return userText, assistantText, true
}
