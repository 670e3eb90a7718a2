package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// roomNamespace seeds the deterministic room id derivation. Changing it
// invalidates every existing room id.
var roomNamespace = uuid.MustParse("9f2c1d6a-54b7-4c21-8f2e-3d7a91c0e4b5")

// Room is a negotiation thread between exactly two participants, optionally
// bound to an RFQ. The primary key is derived from the participants and the
// RFQ id, so concurrent creators converge on the same record.
type Room struct {
	// RoomID is the deterministic identifier, see DeriveRoomID.
	RoomID string `gorm:"primaryKey" json:"room_id"`
	// RFQID binds the room to a negotiation. Nil for direct inquiries.
	// Immutable once set.
	RFQID *string `gorm:"index" json:"rfq_id,omitempty"`
	// Participants holds the two member identities, sorted.
	Participants pq.StringArray `gorm:"type:text[];not null" json:"participants"`
	// Archived blocks new writes once the owning RFQ reaches a terminal
	// state. Reads stay allowed.
	Archived   bool       `json:"archived"`
	CreatedAt  time.Time  `json:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// DeriveRoomID computes the stable room id for a participant pair and an
// optional RFQ. The pair is sorted first, so the caller order does not
// matter and repeated join requests resolve to the same room.
func DeriveRoomID(rfqID string, a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	key := rfqID + "|" + strings.Join(pair, "|")
	return uuid.NewSHA1(roomNamespace, []byte(key)).String()
}

// NewRoom builds the Room record for a participant pair. rfqID may be empty.
func NewRoom(rfqID string, a, b string) *Room {
	pair := []string{a, b}
	sort.Strings(pair)

	room := &Room{
		RoomID:       DeriveRoomID(rfqID, a, b),
		Participants: pq.StringArray(pair),
	}
	if rfqID != "" {
		room.RFQID = &rfqID
	}
	return room
}

// HasParticipant reports whether identity is one of the room's two members.
func (r *Room) HasParticipant(identity string) bool {
	for _, p := range r.Participants {
		if p == identity {
			return true
		}
	}
	return false
}

// OtherParticipant returns the member that is not identity, or "" if
// identity is not a member.
func (r *Room) OtherParticipant(identity string) string {
	if !r.HasParticipant(identity) {
		return ""
	}
	for _, p := range r.Participants {
		if p != identity {
			return p
		}
	}
	return ""
}
