package maestro

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"
)

// TranscriptEntry is one turn of the conversation.
type TranscriptEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript accumulates the conversation timeline. Streamed tokens are
// buffered and committed as one assistant turn when the reply completes.
type Transcript struct {
	mu         sync.Mutex
	entries    []TranscriptEntry
	pending    strings.Builder
	maxEntries int
}

func NewTranscript(maxEntries int) *Transcript {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return &Transcript{maxEntries: maxEntries}
}

// Observe returns an EventHandler that feeds the transcript from the
// protocol event stream. Register it with StreamClient.AddEventHandler.
func (t *Transcript) Observe() EventHandler {
	return func(event Event) {
		switch ev := event.(type) {
		case *TokenEvent:
			t.mu.Lock()
			t.pending.WriteString(ev.Content)
			t.mu.Unlock()
		case *ResponseEvent:
			t.mu.Lock()
			text := t.pending.String()
			t.pending.Reset()
			if text == "" {
				text = ev.Message
			}
			t.addLocked("assistant", text)
			t.mu.Unlock()
		case *ErrorEvent:
			t.mu.Lock()
			t.pending.Reset()
			t.mu.Unlock()
		}
	}
}

// AddUserMessage records an outbound user turn.
func (t *Transcript) AddUserMessage(text string) {
	t.mu.Lock()
	t.addLocked("user", text)
	t.mu.Unlock()
}

func (t *Transcript) addLocked(role, content string) {
	if content == "" {
		return
	}
	t.entries = append(t.entries, TranscriptEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if len(t.entries) > t.maxEntries {
		t.entries = t.entries[len(t.entries)-t.maxEntries:]
	}
}

func (t *Transcript) Entries() []TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TranscriptEntry(nil), t.entries...)
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.pending.Reset()
	t.mu.Unlock()
}

// Export writes the transcript to a JSON file.
func (t *Transcript) Export(filePath string) error {
	t.mu.Lock()
	data, err := json.MarshalIndent(t.entries, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return WrapError(err, ErrCodeUnknown)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return WrapError(err, ErrCodeUnknown)
	}
	return nil
}

// Import replaces the transcript with the contents of a JSON file.
func (t *Transcript) Import(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return WrapError(err, ErrCodeUnknown)
	}
	var imported []TranscriptEntry
	if err := json.Unmarshal(data, &imported); err != nil {
		return NewDecodeError(err.Error())
	}
	t.mu.Lock()
	t.entries = imported
	if len(t.entries) > t.maxEntries {
		t.entries = t.entries[len(t.entries)-t.maxEntries:]
	}
	t.mu.Unlock()
	return nil
}
