package session

import "github.com/google/uuid"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. A Streaming entry is still being
// assembled from assistant deltas; everything else is complete.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Streaming bool   `json:"streaming,omitempty"`
}

// Transcript is the in-memory ordered conversation for one session. At most
// one entry is open for streaming at a time; a delta with a different
// message id, a complete assistant message, or a user turn closes it out.
type Transcript struct {
	entries []Message
	openIdx int
}

func NewTranscript() *Transcript {
	return &Transcript{openIdx: -1}
}

// AppendUser adds a locally-authored message and returns it.
func (t *Transcript) AppendUser(text string) Message {
	t.closeStreaming()
	msg := Message{ID: uuid.NewString(), Role: RoleUser, Content: text}
	t.entries = append(t.entries, msg)
	return msg
}

// ApplyDelta folds an incremental fragment into the transcript. An absent
// message id continues the open streaming entry; trailing-append only, there
// is no indexed patching.
func (t *Transcript) ApplyDelta(messageID, delta string) {
	if t.openIdx >= 0 {
		open := &t.entries[t.openIdx]
		if messageID == "" || messageID == open.ID {
			open.Content += delta
			return
		}
		open.Streaming = false
		t.openIdx = -1
	}

	id := messageID
	if id == "" {
		id = uuid.NewString()
	}
	t.entries = append(t.entries, Message{ID: id, Role: RoleAssistant, Content: delta, Streaming: true})
	t.openIdx = len(t.entries) - 1
}

// AppendAssistant records a whole assistant message. Always a new entry,
// regardless of any prior deltas.
func (t *Transcript) AppendAssistant(messageID, text string) {
	t.closeStreaming()
	id := messageID
	if id == "" {
		id = uuid.NewString()
	}
	t.entries = append(t.entries, Message{ID: id, Role: RoleAssistant, Content: text})
}

func (t *Transcript) closeStreaming() {
	if t.openIdx >= 0 {
		t.entries[t.openIdx].Streaming = false
		t.openIdx = -1
	}
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	return len(t.entries)
}
