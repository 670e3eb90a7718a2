package chathub_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"quotedesk/backend/internal/chathub"
	"quotedesk/backend/internal/models"
)

func TestPresence_StartStopTyping(t *testing.T) {
	p := chathub.NewPresence(time.Minute, func(string, string) {})

	p.StartTyping("room-1", supplierID)
	p.StartTyping("room-1", buyerID)
	p.StartTyping("room-2", buyerID)

	assert.Equal(t, []string{buyerID, supplierID}, p.TypingIn("room-1"))
	assert.Equal(t, []string{buyerID}, p.TypingIn("room-2"))

	p.StopTyping("room-1", buyerID)
	assert.Equal(t, []string{supplierID}, p.TypingIn("room-1"))

	p.StopTyping("room-1", supplierID)
	assert.Empty(t, p.TypingIn("room-1"))
}

func TestPresence_StopUnknownIsNoOp(t *testing.T) {
	p := chathub.NewPresence(time.Minute, func(string, string) {})
	p.StopTyping("room-1", buyerID)
	assert.Empty(t, p.TypingIn("room-1"))
}

func TestPresence_SweepExpiresStaleEntries(t *testing.T) {
	var expired [][2]string
	p := chathub.NewPresence(20*time.Millisecond, func(roomID, identity string) {
		expired = append(expired, [2]string{roomID, identity})
	})

	p.StartTyping("room-1", buyerID)
	p.Sweep()
	assert.Empty(t, expired, "fresh entry must survive a sweep")

	time.Sleep(40 * time.Millisecond)
	p.Sweep()

	assert.Equal(t, [][2]string{{"room-1", buyerID}}, expired)
	assert.Empty(t, p.TypingIn("room-1"))
}

// A client that crashes mid-typing never sends typing_stop; the sweep has to
// synthesize one for the rest of the room.
func TestTyping_ExpiryBroadcastsSyntheticStop(t *testing.T) {
	storage := new(MockStorage)
	room := testRoom()
	storage.On("GetRFQ", rfqID).Return(testRFQ(), nil)
	storage.On("EnsureRoom", mock.AnythingOfType("*models.Room")).Return(room, nil)
	storage.On("UnreadCount", room.RoomID, mock.AnythingOfType("string")).Return(int64(0), nil)

	hub := startHub(t, storage, 50*time.Millisecond)

	buyer := newMockClient("s-b", buyerID)
	supplier := newMockClient("s-s", supplierID)
	joinClient(t, hub, storage, buyer, supplierID)
	joinClient(t, hub, storage, supplier, buyerID)

	hub.InboundCh <- &chathub.ClientRequest{
		Client: buyer,
		Frame:  frame(t, models.EventTypingStart, models.TypingPayload{RoomID: room.RoomID, ReceiverID: supplierID}),
	}
	waitEvent(t, supplier, models.EventTypingStart)

	// No explicit typing_stop ever arrives; the sweep emits one.
	ev := waitEvent(t, supplier, models.EventTypingStop)
	var p models.TypingNoticePayload
	decodeData(t, ev, &p)
	assert.Equal(t, buyerID, p.SenderID)
	assert.Equal(t, room.RoomID, p.RoomID)
}
