package models

import "time"

// Frame types pushed over the conversation and conversation-list sockets.
const (
	FrameMessage        = "message"
	FrameTyping         = "typing"
	FrameReadReceipt    = "read_receipt"
	FrameEditMessage    = "edit_message"
	FrameReaction       = "reaction"
	FrameRemoveReaction = "remove_reaction"
	FrameUserStatus     = "user_status"
	FrameChatList       = "chat_list"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullname,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Reaction struct {
	UserID   string `json:"user_id"`
	Reaction string `json:"reaction"`
}

type ReadReceipt struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Message struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	SenderID  string        `json:"sender_id"`
	CreatedAt time.Time     `json:"created_at"`
	EditedAt  *time.Time    `json:"edited_at,omitempty"`
	ReplyToID string        `json:"reply_to,omitempty"`
	Reactions []Reaction    `json:"reactions"`
	ReadBy    []ReadReceipt `json:"read_by"`
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	out := m
	if m.EditedAt != nil {
		t := *m.EditedAt
		out.EditedAt = &t
	}
	out.Reactions = append([]Reaction(nil), m.Reactions...)
	out.ReadBy = append([]ReadReceipt(nil), m.ReadBy...)
	return out
}

func (m Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

type Conversation struct {
	ID           string   `json:"id"`
	Participants []User   `json:"participants"`
	LastMessage  *Message `json:"last_message,omitempty"`
	UnreadCount  int      `json:"unread_count"`
}

type TypingUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type Presence struct {
	UserID   string    `json:"user_id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}

// Frame is one JSON socket frame. Only the fields relevant to Type are set.
type Frame struct {
	Type          string         `json:"type"`
	Message       *Message       `json:"message,omitempty"`
	MessageID     string         `json:"message_id,omitempty"`
	Content       string         `json:"content,omitempty"`
	ReplyTo       string         `json:"reply_to,omitempty"`
	EditedAt      *time.Time     `json:"edited_at,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	Username      string         `json:"username,omitempty"`
	Reaction      string         `json:"reaction,omitempty"`
	IsTyping      *bool          `json:"is_typing,omitempty"`
	Status        string         `json:"status,omitempty"`
	Timestamp     *time.Time     `json:"timestamp,omitempty"`
	Conversations []Conversation `json:"conversations,omitempty"`
}
