package models

import "encoding/json"

// Live transport event names. Client-to-server: join, sendMessage, typing.
// Server-to-client: receiveMessage, userTyping.
const (
	EventJoin           = "join"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventTyping         = "typing"
	EventUserTyping     = "userTyping"
)

// WireEvent is the envelope for every frame on the live socket.
type WireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload announces which user a fresh connection represents.
type JoinPayload struct {
	UserID uint `json:"userId"`
}

// SendMessagePayload is a client-originated message. A non-zero ID means
// the message was already persisted over REST and only needs relaying.
type SendMessagePayload struct {
	SenderID   uint   `json:"senderId"`
	ReceiverID uint   `json:"receiverId"`
	Message    string `json:"message"`
	ID         uint   `json:"id,omitempty"`
	ClientRef  string `json:"clientRef,omitempty"`
}

// TypingEvent is a transient presence signal, never persisted.
type TypingEvent struct {
	UserID     uint `json:"userId"`
	ReceiverID uint `json:"receiverId,omitempty"`
	Typing     bool `json:"typing"`
}

// MessageEvent wraps a message for delivery to a receiver's connections.
func MessageEvent(msg ChatMessage) WireEvent {
	data, _ := json.Marshal(msg)
	return WireEvent{Event: EventReceiveMessage, Data: data}
}

// TypingNotice wraps a typing signal for the receiver. The receiverId is
// dropped on the way out; the receiver only needs to know who is typing.
func TypingNotice(userID uint, typing bool) WireEvent {
	data, _ := json.Marshal(TypingEvent{UserID: userID, Typing: typing})
	return WireEvent{Event: EventUserTyping, Data: data}
}
