package chat

import (
	"sync"
	"time"
)

// Role identifies who produced a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one immutable conversation turn. Position in history encodes
// turn order; messages are never mutated after append.
type Message struct {
	Role       Role
	Content    string
	CreatedAt  time.Time
	ToolCallID string // Set when Role == RoleTool
	ToolName   string // Set when Role == RoleTool
}

// NewMessage creates a message stamped with the current time
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, CreatedAt: time.Now()}
}

// NewToolMessage creates a tool-result message tied to a tool call
func NewToolMessage(toolCallID, toolName, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		CreatedAt:  time.Now(),
		ToolCallID: toolCallID,
		ToolName:   toolName,
	}
}

// History is the append-only, thread-safe conversation log.
// The session controller is the only writer; hosts read snapshots.
type History struct {
	mu       sync.Mutex
	messages []Message
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{messages: make([]Message, 0, 16)}
}

// Append adds one message to the end of the log
func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// Len returns the number of messages
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Snapshot returns a copy of the full log
func (h *History) Snapshot() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear removes all messages; the only mutation History supports besides append
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
}

// ReplayableSnapshot returns the non-tool turns to replay when resuming a
// session. A trailing assistant message is dropped so the model does not
// continue a response it never finished.
func (h *History) ReplayableSnapshot() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	end := len(h.messages)
	if end > 0 && h.messages[end-1].Role == RoleAssistant {
		end--
	}

	out := make([]Message, 0, end)
	for _, msg := range h.messages[:end] {
		if msg.Role == RoleTool {
			continue
		}
		out = append(out, msg)
	}
	return out
}
