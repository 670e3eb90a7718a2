package storage

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quotedesk/backend/internal/models"
)

func unreadKey(roomID, identity string) string {
	return "unread:" + roomID + ":" + identity
}

// UnreadCount returns how many persisted messages addressed to identity in
// the room are still unread. The redis counter is a cache; on a miss the
// count is rebuilt from postgres, so the value is always recomputable.
func (s *Service) UnreadCount(roomID, identity string) (int64, error) {
	key := unreadKey(roomID, identity)
	n, err := s.Redis.Get(s.Ctx, key).Int64()
	if err == nil {
		if n < 0 {
			n = 0
		}
		return n, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.Log.Warn("unread cache read failed, falling back to db",
			zap.String("key", key), zap.Error(err))
	}

	var count int64
	dbErr := s.DB.Model(&models.Message{}).
		Where("room_id = ? AND receiver_id = ? AND read_at IS NULL", roomID, identity).
		Count(&count).Error
	if dbErr != nil {
		return 0, dbErr
	}

	if setErr := s.Redis.Set(s.Ctx, key, count, 0).Err(); setErr != nil {
		s.Log.Warn("unread cache write failed", zap.String("key", key), zap.Error(setErr))
	}
	return count, nil
}

// The scripts only touch counters that are already cached. A bare INCR or
// DECR would fabricate a key holding 1 or -1 after a cache flush; leaving the
// key absent instead makes the next UnreadCount rebuild it from postgres.
var incrIfCached = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("INCR", KEYS[1])
end
return -1`)

var decrIfCached = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
local v = redis.call("DECR", KEYS[1])
if v < 0 then
	redis.call("SET", KEYS[1], 0)
	return 0
end
return v`)

// IncrUnread bumps the cached counter. The counter is advisory; a lost
// increment is healed by the next cache miss recompute.
func (s *Service) IncrUnread(roomID, identity string) error {
	return incrIfCached.Run(s.Ctx, s.Redis, []string{unreadKey(roomID, identity)}).Err()
}

// DecrUnread lowers the cached counter, pinned at zero.
func (s *Service) DecrUnread(roomID, identity string) error {
	return decrIfCached.Run(s.Ctx, s.Redis, []string{unreadKey(roomID, identity)}).Err()
}
