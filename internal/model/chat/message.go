package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is a single turn in the session log. Role and Content never change
// after the message is appended; Language and AudioData are set at creation
// for bot messages and left empty for user messages.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	AudioData string    `json:"audioData,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Turn is the wire form of a message sent to the answer capability:
// identifier, language and audio reference are stripped.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryFromMessages derives the conversation history forwarded to the
// orchestrator. Order and count must match the session log exactly.
func HistoryFromMessages(messages []Message) []Turn {
	if len(messages) == 0 {
		return nil
	}

	history := make([]Turn, 0, len(messages))
	for _, msg := range messages {
		history = append(history, Turn{Role: msg.Role, Content: msg.Content})
	}
	return history
}
