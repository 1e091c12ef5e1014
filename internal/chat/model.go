package chat

import (
	"time"

	"skillswap/internal/user"
)

// MaxMessageLen is the backend's message length cap in runes.
const MaxMessageLen = 2000

// Chat is a two-party conversation.
type Chat struct {
	ID        int        `json:"id"`
	User1ID   int        `json:"user1_id"`
	User2ID   int        `json:"user2_id"`
	User1     *user.User `json:"user1,omitempty"`
	User2     *user.User `json:"user2,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Message is immutable once created; there is no edit or delete.
type Message struct {
	ID             int       `json:"id"`
	ChatID         int       `json:"chat_id"`
	SenderID       int       `json:"sender_id"`
	SenderUsername string    `json:"sender_username,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListItem is a chat as shown in the conversation list: the counterpart plus
// the most recent message for the preview line.
type ListItem struct {
	Chat
	OtherUser     *user.User `json:"other_user"`
	LastMessage   *Message   `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}
