package storage

import (
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"quotedesk/backend/internal/models"
)

const roomChannelPrefix = "room:"

// PublishBroadcast pushes a persisted message onto the redis channel for its
// room so peer nodes can fan it out to their own sessions.
func (s *Service) PublishBroadcast(b models.RoomBroadcast) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, roomChannelPrefix+b.Message.RoomID, payload).Err()
}

// SubscribeRooms subscribes to every room channel.
func (s *Service) SubscribeRooms() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, roomChannelPrefix+"*")
}
