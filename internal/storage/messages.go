package storage

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"quotedesk/backend/internal/apperr"
	"quotedesk/backend/internal/models"
)

// AppendMessage persists msg and fills in the server-assigned id and
// timestamp. This is the only mutation path for message content; the
// bigserial id makes append order strictly increasing per room.
func (s *Service) AppendMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		s.Log.Error("failed to append message",
			zap.String("room_id", msg.RoomID), zap.Error(err))
		return apperr.Wrap(apperr.CodeStoreUnavailable, "failed to persist message", err)
	}
	return nil
}

func (s *Service) GetMessage(id uint) (*models.Message, error) {
	var msg models.Message
	err := s.DB.First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "message not found")
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// History returns a newest-first page of messages for the room, cursored on
// beforeID. Offset pagination is deliberately not offered: cursors stay
// stable under concurrent appends. The extra row fetched beyond limit only
// feeds the hasMore flag.
func (s *Service) History(roomID string, beforeID uint, limit int) ([]models.Message, bool, error) {
	q := s.DB.Where("room_id = ?", roomID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var page []models.Message
	if err := q.Order("id desc").Limit(limit + 1).Find(&page).Error; err != nil {
		s.Log.Error("failed to load history", zap.String("room_id", roomID), zap.Error(err))
		return nil, false, apperr.Wrap(apperr.CodeStoreUnavailable, "failed to load history", err)
	}

	hasMore := len(page) > limit
	if hasMore {
		page = page[:limit]
	}
	return page, hasMore, nil
}

// MarkRead sets the message's read timestamp. The returned bool is false
// when the message was already read, which is a no-op rather than an error.
// Only the message's receiver may acknowledge it.
func (s *Service) MarkRead(messageID uint, readerID string) (*models.Message, bool, error) {
	msg, err := s.GetMessage(messageID)
	if err != nil {
		return nil, false, err
	}
	if msg.ReceiverID != readerID {
		return nil, false, apperr.New(apperr.CodeForbidden, "not the message receiver")
	}
	if msg.ReadAt != nil {
		return msg, false, nil
	}

	now := time.Now()
	err = s.DB.Model(&models.Message{}).
		Where("id = ? AND read_at IS NULL", messageID).
		Update("read_at", now).Error
	if err != nil {
		return nil, false, apperr.Wrap(apperr.CodeStoreUnavailable, "failed to mark read", err)
	}
	msg.ReadAt = &now
	return msg, true, nil
}
