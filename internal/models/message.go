package models

import "time"

// MessageKind classifies the message body.
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindImage  MessageKind = "image"
	KindFile   MessageKind = "file"
	KindSystem MessageKind = "system"
)

// Valid reports whether k is one of the supported kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindFile, KindSystem:
		return true
	}
	return false
}

// Message is one persisted chat message. Immutable after append, except for
// ReadAt which is set exactly once when the receiver acknowledges.
//
// ID is a bigserial primary key assigned by PostgreSQL on insert, so ids are
// strictly increasing in append order regardless of wall-clock skew between
// producers. History pagination cursors on it.
type Message struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	RoomID     string      `gorm:"type:uuid;not null;index:idx_room_msg,priority:1" json:"room_id"`
	SenderID   string      `gorm:"type:text;not null" json:"sender_id"`
	ReceiverID string      `gorm:"type:text;not null;index:idx_room_unread,priority:1" json:"receiver_id"`
	RFQID      *string     `gorm:"index" json:"rfq_id,omitempty"`
	Body       string      `gorm:"type:text;not null" json:"body"`
	Kind       MessageKind `gorm:"type:text;not null;default:text" json:"kind"`
	CreatedAt  time.Time   `json:"created_at"`
	// ReadAt is nil until the receiver's client acknowledges the message.
	ReadAt *time.Time `gorm:"index:idx_room_unread,priority:2" json:"read_at,omitempty"`
}
