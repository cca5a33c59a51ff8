package chat

import (
	"sync"
	"testing"
)

func TestHistory_Append(t *testing.T) {
	h := NewHistory()

	h.Append(NewMessage(RoleUser, "hello"))
	h.Append(NewMessage(RoleAssistant, "hi there"))

	if h.Len() != 2 {
		t.Fatalf("Expected 2 messages, got %d", h.Len())
	}

	msgs := h.Snapshot()
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("Unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "hi there" {
		t.Errorf("Unexpected second message: %+v", msgs[1])
	}
	if msgs[0].CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be stamped")
	}
}

func TestHistory_SnapshotIsCopy(t *testing.T) {
	h := NewHistory()
	h.Append(NewMessage(RoleUser, "hello"))

	snap := h.Snapshot()
	snap[0].Content = "mutated"

	if h.Snapshot()[0].Content != "hello" {
		t.Error("Expected snapshot mutation to not affect history")
	}
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory()
	h.Append(NewMessage(RoleUser, "hello"))
	h.Clear()

	if h.Len() != 0 {
		t.Errorf("Expected empty history after clear, got %d", h.Len())
	}
}

func TestHistory_ToolMessage(t *testing.T) {
	msg := NewToolMessage("call-1", "get_weather", `{"temp": 20}`)
	if msg.Role != RoleTool {
		t.Errorf("Expected role tool, got %s", msg.Role)
	}
	if msg.ToolCallID != "call-1" || msg.ToolName != "get_weather" {
		t.Errorf("Unexpected tool fields: %+v", msg)
	}
}

func TestHistory_ReplayableSnapshot(t *testing.T) {
	h := NewHistory()
	h.Append(NewMessage(RoleUser, "what's the weather"))
	h.Append(NewToolMessage("call-1", "get_weather", `{"temp": 20}`))
	h.Append(NewMessage(RoleAssistant, "it's 20 degrees"))
	h.Append(NewMessage(RoleUser, "thanks"))
	h.Append(NewMessage(RoleAssistant, "partial answer that never fini"))

	replay := h.ReplayableSnapshot()

	// Tool turn and the trailing assistant message are excluded
	if len(replay) != 3 {
		t.Fatalf("Expected 3 replayable messages, got %d", len(replay))
	}
	if replay[0].Content != "what's the weather" {
		t.Errorf("Unexpected first replay message: %+v", replay[0])
	}
	if replay[1].Role != RoleAssistant || replay[1].Content != "it's 20 degrees" {
		t.Errorf("Unexpected second replay message: %+v", replay[1])
	}
	if replay[2].Content != "thanks" {
		t.Errorf("Unexpected third replay message: %+v", replay[2])
	}
}

func TestHistory_ReplayableSnapshot_NoTrailingAssistant(t *testing.T) {
	h := NewHistory()
	h.Append(NewMessage(RoleUser, "hello"))

	replay := h.ReplayableSnapshot()
	if len(replay) != 1 {
		t.Fatalf("Expected 1 replayable message, got %d", len(replay))
	}
}

func TestHistory_ConcurrentAppend(t *testing.T) {
	h := NewHistory()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Append(NewMessage(RoleUser, "msg"))
			}
		}()
	}
	wg.Wait()

	if h.Len() != 1000 {
		t.Errorf("Expected 1000 messages after concurrent appends, got %d", h.Len())
	}
}
