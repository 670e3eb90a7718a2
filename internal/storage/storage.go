package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"quotedesk/backend/internal/apperr"
	"quotedesk/backend/internal/models"
)

// Storage is the narrow persistence contract consumed by the hub and the
// domain event bridge. PostgreSQL holds the durable records, redis the
// unread-counter cache and the cross-node room channel.
type Storage interface {
	// Rooms
	EnsureRoom(room *models.Room) (*models.Room, error)
	GetRoom(roomID string) (*models.Room, error)
	RoomsForRFQ(rfqID string) ([]models.Room, error)
	ArchiveRoom(roomID string) error

	// RFQ read model (owned by the CRUD side, read-only here)
	GetRFQ(rfqID string) (*models.RFQ, error)

	// Messages
	AppendMessage(msg *models.Message) error
	GetMessage(id uint) (*models.Message, error)
	History(roomID string, beforeID uint, limit int) ([]models.Message, bool, error)
	MarkRead(messageID uint, readerID string) (*models.Message, bool, error)

	// Unread counters
	UnreadCount(roomID, identity string) (int64, error)
	IncrUnread(roomID, identity string) error
	DecrUnread(roomID, identity string) error

	// Cross-node fan-out
	PublishBroadcast(b models.RoomBroadcast) error
	SubscribeRooms() *redis.PubSub
}

// Service is the gorm+redis implementation of Storage.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
	Log   *zap.Logger
}

func NewService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
		Log:   log,
	}
}

// EnsureRoom creates the room if it does not exist yet and returns the
// stored record. The deterministic primary key makes creation idempotent:
// concurrent creators converge on the same row, first writer wins.
func (s *Service) EnsureRoom(room *models.Room) (*models.Room, error) {
	var stored models.Room
	err := s.DB.Where(models.Room{RoomID: room.RoomID}).
		Attrs(models.Room{
			RFQID:        room.RFQID,
			Participants: room.Participants,
		}).
		FirstOrCreate(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Service) GetRoom(roomID string) (*models.Room, error) {
	var room models.Room
	err := s.DB.Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		s.Log.Error("failed to load room", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}
	return &room, nil
}

// RoomsForRFQ returns every room bound to the given RFQ.
func (s *Service) RoomsForRFQ(rfqID string) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.DB.Where("rfq_id = ?", rfqID).Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// ArchiveRoom blocks new writes to the room. Reads stay allowed.
func (s *Service) ArchiveRoom(roomID string) error {
	return s.DB.Model(&models.Room{}).
		Where("room_id = ? AND archived = ?", roomID, false).
		Updates(map[string]interface{}{
			"archived":    true,
			"archived_at": gorm.Expr("NOW()"),
		}).Error
}

func (s *Service) GetRFQ(rfqID string) (*models.RFQ, error) {
	var rfq models.RFQ
	err := s.DB.Where("id = ?", rfqID).First(&rfq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "rfq not found")
	}
	if err != nil {
		return nil, err
	}
	return &rfq, nil
}
