package models

import "time"

// ChatMessage is a persisted chat message between two users.
// The store assigns ID and CreatedAt; ID ordering matches insertion order,
// which is what the summary tie-break relies on.
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"not null;index:idx_pair" json:"senderId"`
	ReceiverID uint      `gorm:"not null;index:idx_pair" json:"receiverId"`
	Body       string    `gorm:"type:text;not null" json:"message"`
	CreatedAt  time.Time `gorm:"index" json:"timestamp"`
	IsRead     bool      `gorm:"not null;default:false" json:"isRead"`

	// ClientRef is a client-generated correlation ID echoed back on the
	// REST response and the live push. Not persisted.
	ClientRef string `gorm:"-" json:"clientRef,omitempty"`
}

// ConversationSummary is one row of the chat list: the peer, the most
// recent message either way, and how many of their messages are unread.
type ConversationSummary struct {
	Peer        PeerInfo    `json:"user"`
	LastMessage LastMessage `json:"lastMessage"`
	UnreadCount int64       `json:"unreadCount"`
}

type PeerInfo struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Online bool   `json:"online"`
}

type LastMessage struct {
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsOwn     bool      `json:"isOwn"`
}
