package chat

import "time"

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"createdAt"`
}
