package chathub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quotedesk/backend/internal/chathub"
	"quotedesk/backend/internal/models"
)

// wirePubSub backs the hub's room subscription with an in-process redis and
// returns a client for publishing broadcasts into it.
func wirePubSub(t *testing.T, hub *chathub.Hub, storage *MockStorage) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	storage.On("SubscribeRooms").Return(rdb.PSubscribe(ctx, "room:*"))
	go hub.RunPubSub(ctx)
	return rdb
}

func TestPeerBroadcast_ReachesJoinedSessions(t *testing.T) {
	storage := new(MockStorage)
	hub, room := setupNegotiation(t, storage)
	rdb := wirePubSub(t, hub, storage)

	supplier := newMockClient("s-s", supplierID)
	joinClient(t, hub, storage, supplier, buyerID)

	msg := models.Message{
		ID: 42, RoomID: room.RoomID, SenderID: buyerID, ReceiverID: supplierID,
		Body: "appended on another node", Kind: models.KindText,
	}
	payload, err := json.Marshal(models.RoomBroadcast{Node: "peer-node", Message: msg})
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(context.Background(), "room:"+room.RoomID, payload).Err())

	ev := waitEvent(t, supplier, models.EventNewMessage)
	var got models.Message
	decodeData(t, ev, &got)
	assert.Equal(t, uint(42), got.ID)
	assert.Equal(t, "appended on another node", got.Body)
}

// The publishing node already delivered to its own sessions; re-consuming its
// own broadcast would double-deliver every message.
func TestPeerBroadcast_OwnNodeCopySkipped(t *testing.T) {
	storage := new(MockStorage)
	hub, room := setupNegotiation(t, storage)
	rdb := wirePubSub(t, hub, storage)

	storage.On("AppendMessage", mock.AnythingOfType("*models.Message")).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Message).ID = 42
	}).Return(nil)
	storage.On("IncrUnread", room.RoomID, supplierID).Return(nil)
	// Route the node's own broadcast back through redis, as a deployment
	// sharing one redis would.
	storage.On("PublishBroadcast", mock.AnythingOfType("models.RoomBroadcast")).Run(func(args mock.Arguments) {
		b := args.Get(0).(models.RoomBroadcast)
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		require.NoError(t, rdb.Publish(context.Background(), "room:"+b.Message.RoomID, payload).Err())
	}).Return(nil)

	buyer := newMockClient("s-b", buyerID)
	supplier := newMockClient("s-s", supplierID)
	joinClient(t, hub, storage, buyer, supplierID)
	joinClient(t, hub, storage, supplier, buyerID)

	hub.InboundCh <- &chathub.ClientRequest{
		Client: buyer,
		Frame: frame(t, models.EventSendMessage, models.SendMessagePayload{
			ReceiverID: supplierID,
			RFQID:      rfqID,
			Body:       "once only",
		}),
	}

	ev := waitEvent(t, supplier, models.EventNewMessage)
	var got models.Message
	decodeData(t, ev, &got)
	assert.Equal(t, uint(42), got.ID)

	// Give the published copy time to come back through the subscription; a
	// second new_message here would be the node re-consuming it.
	time.Sleep(300 * time.Millisecond)
	expectNoEvent(t, supplier)
}
