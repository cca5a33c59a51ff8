package provider

import (
	"strings"
	"sync"

	"github.com/voicebridge/voicebridge/internal/chat"
)

// Transcript accumulates streamed transcription fragments per direction and
// flushes each direction into a single turn-grained chat message at a
// boundary the vendor client chooses. An interruption discards both buffers
// so partial content never reaches history.
type Transcript struct {
	mu        sync.Mutex
	user      strings.Builder
	assistant strings.Builder
}

// NewTranscript creates an empty transcript accumulator
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AddUser appends a user-input transcription fragment
func (t *Transcript) AddUser(fragment string) {
	if fragment == "" {
		return
	}
	t.mu.Lock()
	t.user.WriteString(fragment)
	t.mu.Unlock()
}

// AddAssistant appends a model-output transcription fragment
func (t *Transcript) AddAssistant(fragment string) {
	if fragment == "" {
		return
	}
	t.mu.Lock()
	t.assistant.WriteString(fragment)
	t.mu.Unlock()
}

// FlushUser drains the user buffer into one message. Returns ok=false when
// the buffer is empty.
func (t *Transcript) FlushUser() (chat.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	content := strings.TrimSpace(t.user.String())
	t.user.Reset()
	if content == "" {
		return chat.Message{}, false
	}
	return chat.NewMessage(chat.RoleUser, content), true
}

// FlushAssistant drains the assistant buffer into one message. Returns
// ok=false when the buffer is empty.
func (t *Transcript) FlushAssistant() (chat.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	content := strings.TrimSpace(t.assistant.String())
	t.assistant.Reset()
	if content == "" {
		return chat.Message{}, false
	}
	return chat.NewMessage(chat.RoleAssistant, content), true
}

// Discard drops both buffers without flushing
func (t *Transcript) Discard() {
	t.mu.Lock()
	t.user.Reset()
	t.assistant.Reset()
	t.mu.Unlock()
}

// PendingUser reports whether the user buffer holds unflushed content
func (t *Transcript) PendingUser() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(t.user.String()) != ""
}
