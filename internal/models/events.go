package models

import (
	"encoding/json"
	"time"
)

// Inbound client -> server event types.
const (
	EventAuth        = "auth"
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventMarkRead    = "mark_read"
	EventChatHistory = "get_chat_history"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
)

// Outbound server -> client event types.
const (
	EventConnectionAck = "connection_ack"
	EventRoomJoined    = "room_joined"
	EventNewMessage    = "new_message"
	EventMessageSent   = "message_sent"
	EventMessageRead   = "message_read"
	EventHistoryPage   = "chat_history"
	EventUnreadCount   = "unread_count"
	EventRFQUpdate     = "rfq_update"
	EventNewQuote      = "new_quote"
	EventError         = "error"
)

// ClientEvent is the envelope for every inbound frame. The payload stays raw
// until the gateway demultiplexes it by Type into one of the typed payload
// structs below.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerEvent is the envelope for every outbound frame.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Typed inbound payloads. Validation tags are enforced at the gateway before
// anything is delegated, so malformed frames fail fast with no side effects.

type AuthPayload struct {
	Token string `json:"token" validate:"required"`
}

type JoinRoomPayload struct {
	RFQID   string `json:"rfq_id,omitempty"`
	OtherID string `json:"other_id" validate:"required"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"room_id" validate:"required,uuid"`
}

type SendMessagePayload struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	RoomID     string `json:"room_id,omitempty" validate:"omitempty,uuid"`
	RFQID      string `json:"rfq_id,omitempty"`
	Body       string `json:"body" validate:"required,max=4000"`
	// Kind is checked against MessageKind.Valid by the delivery pipeline.
	Kind string `json:"kind,omitempty"`
}

type MarkReadPayload struct {
	MessageID uint `json:"message_id" validate:"required"`
}

type ChatHistoryPayload struct {
	RoomID   string `json:"room_id,omitempty" validate:"omitempty,uuid"`
	OtherID  string `json:"other_id,omitempty"`
	RFQID    string `json:"rfq_id,omitempty"`
	BeforeID uint   `json:"before_id,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

type TypingPayload struct {
	RoomID     string `json:"room_id" validate:"required,uuid"`
	ReceiverID string `json:"receiver_id" validate:"required"`
}

// Typed outbound payloads.

type ConnectionAckPayload struct {
	SessionID string `json:"session_id"`
	Identity  string `json:"identity"`
}

type RoomJoinedPayload struct {
	RoomID      string `json:"room_id"`
	RFQID       string `json:"rfq_id,omitempty"`
	UnreadCount int64  `json:"unread_count"`
	PeerOnline  bool   `json:"peer_online"`
}

type MessageSentPayload struct {
	ID        uint      `json:"id"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

type MessageReadPayload struct {
	MessageID uint   `json:"message_id"`
	RoomID    string `json:"room_id"`
	ReaderID  string `json:"reader_id"`
}

type HistoryPagePayload struct {
	RoomID   string    `json:"room_id"`
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

type UnreadCountPayload struct {
	RoomID string `json:"room_id"`
	Count  int64  `json:"count"`
}

type TypingNoticePayload struct {
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
}

type RFQEventPayload struct {
	RFQID   string         `json:"rfq_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomBroadcast is the envelope published on the redis room channel so peer
// nodes can fan a persisted message out to their own sessions. Node lets the
// publishing node skip its own broadcast on fan-in.
type RoomBroadcast struct {
	Node    string  `json:"node"`
	Message Message `json:"message"`
}

// RFQEventEnvelope is the record consumed from the rfq.events topic.
type RFQEventEnvelope struct {
	Type    string         `json:"type"` // "rfq_updated" or "quote_submitted"
	RFQID   string         `json:"rfq_id"`
	Payload map[string]any `json:"payload,omitempty"`
}
