package chathub

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"quotedesk/backend/internal/models"
)

// Bridge relays RFQ and quote lifecycle notifications from the surrounding
// business logic into the live room channels. These are out-of-band events:
// no Message record is ever written for them.
//
// Both entry points are deliberately error-less: a notification that cannot
// be resolved is logged and dropped, it must never block or fail the
// business transaction that produced it.
type Bridge struct {
	hub     *Hub
	storage bridgeStorage
	log     *zap.Logger
}

// bridgeStorage is the slice of the storage contract the bridge needs.
type bridgeStorage interface {
	RoomsForRFQ(rfqID string) ([]models.Room, error)
	ArchiveRoom(roomID string) error
}

func NewBridge(hub *Hub, s bridgeStorage, log *zap.Logger) *Bridge {
	return &Bridge{hub: hub, storage: s, log: log}
}

// RFQUpdated pushes an rfq_update event to every live session of every
// participant of every room bound to the RFQ. A terminal status in the
// payload additionally archives those rooms: new writes are blocked, reads
// keep working.
func (b *Bridge) RFQUpdated(rfqID string, payload map[string]any) {
	rooms := b.resolveRooms(rfqID)
	if rooms == nil {
		return
	}

	if status, ok := payload["status"].(string); ok && models.IsTerminalRFQStatus(status) {
		for _, room := range rooms {
			if err := b.storage.ArchiveRoom(room.RoomID); err != nil {
				b.log.Warn("failed to archive room",
					zap.String("room_id", room.RoomID), zap.Error(err))
			}
		}
	}

	b.hub.EnqueueDomainEvent(models.EventRFQUpdate, rfqID, payload, rooms)
}

// QuoteSubmitted pushes a new_quote event to every live session of every
// participant of every room bound to the RFQ.
func (b *Bridge) QuoteSubmitted(rfqID string, payload map[string]any) {
	rooms := b.resolveRooms(rfqID)
	if rooms == nil {
		return
	}
	b.hub.EnqueueDomainEvent(models.EventNewQuote, rfqID, payload, rooms)
}

func (b *Bridge) resolveRooms(rfqID string) []models.Room {
	rooms, err := b.storage.RoomsForRFQ(rfqID)
	if err != nil {
		b.log.Warn("failed to resolve rooms for rfq",
			zap.String("rfq_id", rfqID), zap.Error(err))
		return nil
	}
	if len(rooms) == 0 {
		b.log.Debug("no rooms bound to rfq, dropping notification",
			zap.String("rfq_id", rfqID))
		return nil
	}
	return rooms
}

// handleDomainEvent fans a resolved notification out to every live session
// of every distinct participant. Runs in the hub loop.
func (h *Hub) handleDomainEvent(ev domainEvent) {
	participants := lo.Uniq(lo.FlatMap(ev.Rooms, func(r models.Room, _ int) []string {
		return r.Participants
	}))

	out := models.ServerEvent{
		Type: ev.Type,
		Data: models.RFQEventPayload{RFQID: ev.RFQID, Payload: ev.Payload},
	}
	for _, identity := range participants {
		for _, c := range h.sessions[identity] {
			h.push(c, out)
		}
	}
}
