package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quotedesk/backend/internal/apperr"
	"quotedesk/backend/internal/auth"
	"quotedesk/backend/internal/models"
	"quotedesk/backend/internal/storage"
)

const presenceSweepInterval = 500 * time.Millisecond

// typingNotice is a typing expiry surfaced by the presence sweep.
type typingNotice struct {
	RoomID   string
	Identity string
}

// domainEvent is an RFQ/quote notification resolved by the bridge, ready
// for fan-out to room participants.
type domainEvent struct {
	Type    string
	RFQID   string
	Payload map[string]any
	Rooms   []models.Room
}

// Hub owns all per-node session state: the session registry, the in-memory
// room membership view and the delivery pipeline. Everything is mutated by
// the single Run goroutine, fed through channels, so none of it needs locks.
type Hub struct {
	// sessions is the registry: identity -> sessionID -> client.
	sessions map[string]map[string]Client
	// clients indexes every registered client by session id.
	clients map[string]Client
	// rooms is the membership view: roomID -> sessionID -> client.
	// Joins live only as long as the session; reconnects re-join.
	rooms map[string]map[string]Client
	// sessionRooms tracks which rooms each session joined, for cleanup.
	sessionRooms map[string]map[string]bool

	RegisterCh   chan Client
	UnregisterCh chan Client
	InboundCh    chan *ClientRequest

	domainCh    chan domainEvent
	typingCh    chan typingNotice
	broadcastCh chan models.RoomBroadcast

	storage  storage.Storage
	verifier auth.Verifier
	presence *Presence
	validate *validator.Validate
	log      *zap.Logger

	// nodeID tags redis broadcasts so this node can skip its own on fan-in.
	nodeID    string
	authGrace time.Duration
}

func NewHub(s storage.Storage, verifier auth.Verifier, log *zap.Logger, typingTTL, authGrace time.Duration) *Hub {
	h := &Hub{
		sessions:     make(map[string]map[string]Client),
		clients:      make(map[string]Client),
		rooms:        make(map[string]map[string]Client),
		sessionRooms: make(map[string]map[string]bool),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		InboundCh:    make(chan *ClientRequest),
		domainCh:     make(chan domainEvent, 64),
		typingCh:     make(chan typingNotice, 64),
		broadcastCh:  make(chan models.RoomBroadcast, 64),
		storage:      s,
		verifier:     verifier,
		validate:     validator.New(),
		log:          log,
		nodeID:       uuid.NewString(),
		authGrace:    authGrace,
	}
	h.presence = NewPresence(typingTTL, h.enqueueTypingStop)
	return h
}

// Run is the hub actor loop. It owns every map above; handlers called from
// here may touch storage (short, possibly suspending calls) but never block
// on another client.
func (h *Hub) Run(ctx context.Context) {
	go h.presence.Run(ctx, presenceSweepInterval)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.RegisterCh:
			h.register(client)

		case client := <-h.UnregisterCh:
			h.unregister(client)

		case req := <-h.InboundCh:
			h.route(req.Client, req.Frame)

		case ev := <-h.domainCh:
			h.handleDomainEvent(ev)

		case n := <-h.typingCh:
			h.broadcastTyping(n.RoomID, n.Identity, models.EventTypingStop)

		case b := <-h.broadcastCh:
			h.handlePeerBroadcast(b)
		}
	}
}

// RunPubSub consumes the redis room channels and feeds peer-node broadcasts
// into the hub loop. Started alongside Run.
func (h *Hub) RunPubSub(ctx context.Context) {
	pubsub := h.storage.SubscribeRooms()
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var b models.RoomBroadcast
			if err := json.Unmarshal([]byte(m.Payload), &b); err != nil {
				h.log.Warn("failed to decode room broadcast", zap.Error(err))
				continue
			}
			select {
			case h.broadcastCh <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

// register adds the client to the session registry. Idempotent per session
// id; concurrent sessions of the same identity coexist (multi-device) and
// never evict each other.
func (h *Hub) register(c Client) {
	identity := c.GetIdentity()
	if identity == "" {
		return
	}
	if _, ok := h.clients[c.GetSessionID()]; ok {
		return
	}
	h.clients[c.GetSessionID()] = c
	if h.sessions[identity] == nil {
		h.sessions[identity] = make(map[string]Client)
	}
	h.sessions[identity][c.GetSessionID()] = c
	h.push(c, ackEvent(c))
	h.log.Info("session registered",
		zap.String("identity", identity),
		zap.String("session_id", c.GetSessionID()))
}

// unregister drops the session from the registry and from every room's
// in-memory view. Persisted room and message state is untouched.
func (h *Hub) unregister(c Client) {
	sid := c.GetSessionID()
	if _, ok := h.clients[sid]; ok {
		delete(h.clients, sid)
		identity := c.GetIdentity()
		if set := h.sessions[identity]; set != nil {
			delete(set, sid)
			if len(set) == 0 {
				delete(h.sessions, identity)
			}
		}
		for roomID := range h.sessionRooms[sid] {
			if members := h.rooms[roomID]; members != nil {
				delete(members, sid)
				if len(members) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}
		delete(h.sessionRooms, sid)
		h.log.Info("session unregistered", zap.String("session_id", sid))
	}
	c.Close()
}

// joinRoomView adds the session to the room's in-memory membership.
func (h *Hub) joinRoomView(c Client, roomID string) {
	sid := c.GetSessionID()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]Client)
	}
	h.rooms[roomID][sid] = c
	if h.sessionRooms[sid] == nil {
		h.sessionRooms[sid] = make(map[string]bool)
	}
	h.sessionRooms[sid][roomID] = true
}

func (h *Hub) leaveRoomView(c Client, roomID string) {
	sid := c.GetSessionID()
	if members := h.rooms[roomID]; members != nil {
		delete(members, sid)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.sessionRooms[sid], roomID)
}

func (h *Hub) sessionJoined(sid, roomID string) bool {
	return h.sessionRooms[sid][roomID]
}

// identityOnline reports whether the identity has at least one live session
// on this node.
func (h *Hub) identityOnline(identity string) bool {
	return len(h.sessions[identity]) > 0
}

// push delivers one event to one client without ever blocking the hub loop.
// A client whose send buffer is full is considered dead and dropped.
func (h *Hub) push(c Client, ev models.ServerEvent) {
	if c.Closed() {
		return
	}
	select {
	case c.GetSendChannel() <- ev:
	default:
		h.log.Warn("send buffer full, dropping session",
			zap.String("session_id", c.GetSessionID()))
		h.unregister(c)
	}
}

// pushError sends a coded error event scoped to the failed request. The
// connection stays open for every code except UNAUTHENTICATED.
func (h *Hub) pushError(c Client, err error) {
	code := apperr.CodeOf(err)
	msg := "storage temporarily unavailable, retry"
	var e *apperr.Error
	if errors.As(err, &e) && code != apperr.CodeStoreUnavailable {
		msg = e.Message
	}
	h.push(c, models.ServerEvent{
		Type: models.EventError,
		Data: models.ErrorPayload{Code: string(code), Message: msg},
	})
	if code == apperr.CodeUnauthenticated {
		h.unregister(c)
	}
}

// enqueueTypingStop is handed to the presence coordinator; it runs on the
// sweep goroutine, so it only enqueues.
func (h *Hub) enqueueTypingStop(roomID, identity string) {
	select {
	case h.typingCh <- typingNotice{RoomID: roomID, Identity: identity}:
	default:
		h.log.Warn("typing notice dropped", zap.String("room_id", roomID))
	}
}

// EnqueueDomainEvent hands a resolved RFQ/quote notification to the hub
// loop. Never blocks the caller: domain notifications are best-effort and
// must not stall the business transaction that produced them.
func (h *Hub) EnqueueDomainEvent(eventType, rfqID string, payload map[string]any, rooms []models.Room) {
	select {
	case h.domainCh <- domainEvent{Type: eventType, RFQID: rfqID, Payload: payload, Rooms: rooms}:
	default:
		h.log.Warn("domain event dropped, hub backlogged", zap.String("rfq_id", rfqID))
	}
}
