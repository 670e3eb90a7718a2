package chathub

import (
	"go.uber.org/zap"

	"quotedesk/backend/internal/apperr"
	"quotedesk/backend/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// checkRFQParty enforces the RFQ participant rule: when a room is bound to
// an RFQ, one of the two parties must be the RFQ's buyer.
func (h *Hub) checkRFQParty(rfqID, a, b string) error {
	rfq, err := h.storage.GetRFQ(rfqID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return err
		}
		return apperr.Wrap(apperr.CodeStoreUnavailable, "failed to look up rfq", err)
	}
	if rfq.BuyerID != a && rfq.BuyerID != b {
		return apperr.New(apperr.CodeForbidden, "not a participant of this rfq")
	}
	return nil
}

// handleJoinRoom resolves (or lazily creates) the room for the caller and
// the other party, adds this session to the in-memory membership view and
// answers with the caller's unread count and the peer's presence.
func (h *Hub) handleJoinRoom(c Client, p models.JoinRoomPayload) {
	identity := c.GetIdentity()
	if p.OtherID == identity {
		h.pushError(c, apperr.New(apperr.CodeValidationFailed, "cannot open a room with yourself"))
		return
	}

	if p.RFQID != "" {
		if err := h.checkRFQParty(p.RFQID, identity, p.OtherID); err != nil {
			h.pushError(c, err)
			return
		}
	}

	room, err := h.storage.EnsureRoom(models.NewRoom(p.RFQID, identity, p.OtherID))
	if err != nil {
		h.pushError(c, apperr.Wrap(apperr.CodeStoreUnavailable, "failed to resolve room", err))
		return
	}

	h.joinRoomView(c, room.RoomID)

	unread, err := h.storage.UnreadCount(room.RoomID, identity)
	if err != nil {
		// Derived data; the client can refetch. Do not fail the join.
		h.log.Warn("unread count unavailable on join",
			zap.String("room_id", room.RoomID), zap.Error(err))
	}

	rfqID := ""
	if room.RFQID != nil {
		rfqID = *room.RFQID
	}
	h.push(c, models.ServerEvent{
		Type: models.EventRoomJoined,
		Data: models.RoomJoinedPayload{
			RoomID:      room.RoomID,
			RFQID:       rfqID,
			UnreadCount: unread,
			PeerOnline:  h.identityOnline(p.OtherID),
		},
	})
}

// handleSendMessage is the delivery pipeline: validate, persist (the
// durability point), bump the unread counter, ack the sender, then fan out.
// The whole sequence runs in the hub loop, so fan-out order matches append
// order within a room, and the sender's ack is pushed before any of the
// sender's other-device echoes.
func (h *Hub) handleSendMessage(c Client, p models.SendMessagePayload) {
	sender := c.GetIdentity()
	kind := models.MessageKind(p.Kind)
	if p.Kind == "" {
		kind = models.KindText
	}
	if !kind.Valid() {
		h.pushError(c, apperr.New(apperr.CodeValidationFailed, "unsupported message kind"))
		return
	}

	room, err := h.resolveSendRoom(sender, p)
	if err != nil {
		h.pushError(c, err)
		return
	}
	if !room.HasParticipant(sender) {
		h.pushError(c, apperr.New(apperr.CodeForbidden, "not a participant of this room"))
		return
	}
	if room.OtherParticipant(sender) != p.ReceiverID {
		h.pushError(c, apperr.New(apperr.CodeForbidden, "receiver is not a participant of this room"))
		return
	}
	if room.Archived {
		h.pushError(c, apperr.New(apperr.CodeForbidden, "room is archived"))
		return
	}

	msg := &models.Message{
		RoomID:     room.RoomID,
		SenderID:   sender,
		ReceiverID: p.ReceiverID,
		RFQID:      room.RFQID,
		Body:       p.Body,
		Kind:       kind,
	}
	if err := h.storage.AppendMessage(msg); err != nil {
		// Nothing was fanned out; the client may retry.
		h.pushError(c, err)
		return
	}

	if err := h.storage.IncrUnread(room.RoomID, p.ReceiverID); err != nil {
		h.log.Warn("unread increment failed", zap.String("room_id", room.RoomID), zap.Error(err))
	}

	h.push(c, models.ServerEvent{
		Type: models.EventMessageSent,
		Data: models.MessageSentPayload{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			CreatedAt: msg.CreatedAt,
			Status:    "sent",
		},
	})

	h.fanOutMessage(msg, c.GetSessionID())

	if err := h.storage.PublishBroadcast(models.RoomBroadcast{Node: h.nodeID, Message: *msg}); err != nil {
		h.log.Warn("cross-node broadcast failed", zap.String("room_id", msg.RoomID), zap.Error(err))
	}
}

// resolveSendRoom loads the target room, creating it lazily when the client
// addressed the receiver directly instead of naming a room.
func (h *Hub) resolveSendRoom(sender string, p models.SendMessagePayload) (*models.Room, error) {
	if p.RoomID != "" {
		return h.storage.GetRoom(p.RoomID)
	}
	if p.RFQID != "" {
		if err := h.checkRFQParty(p.RFQID, sender, p.ReceiverID); err != nil {
			return nil, err
		}
	}
	return h.storage.EnsureRoom(models.NewRoom(p.RFQID, sender, p.ReceiverID))
}

// fanOutMessage pushes new_message to every receiver session that joined
// the room, an unread_count nudge to the receiver's other sessions, and an
// echo to every sender session except origin. origin is "" for messages
// that arrived from a peer node.
func (h *Hub) fanOutMessage(msg *models.Message, origin string) {
	newMsg := models.ServerEvent{Type: models.EventNewMessage, Data: *msg}

	var unreadEv *models.ServerEvent
	for sid, rc := range h.sessions[msg.ReceiverID] {
		if h.sessionJoined(sid, msg.RoomID) {
			h.push(rc, newMsg)
			continue
		}
		if unreadEv == nil {
			count, err := h.storage.UnreadCount(msg.RoomID, msg.ReceiverID)
			if err != nil {
				continue
			}
			unreadEv = &models.ServerEvent{
				Type: models.EventUnreadCount,
				Data: models.UnreadCountPayload{RoomID: msg.RoomID, Count: count},
			}
		}
		h.push(rc, *unreadEv)
	}

	for sid, sc := range h.sessions[msg.SenderID] {
		if sid != origin {
			h.push(sc, newMsg)
		}
	}
}

// handlePeerBroadcast fans out a message appended on another node. The
// origin node already delivered to its own sessions and owns the counter
// increment; clients de-duplicate on message id.
func (h *Hub) handlePeerBroadcast(b models.RoomBroadcast) {
	if b.Node == h.nodeID {
		return
	}
	h.fanOutMessage(&b.Message, "")
}

// handleMarkRead updates persisted read state, decrements the unread
// counter and tells the sender's sessions about the read receipt. Re-acking
// an already-read message is a silent no-op.
func (h *Hub) handleMarkRead(c Client, p models.MarkReadPayload) {
	reader := c.GetIdentity()

	msg, updated, err := h.storage.MarkRead(p.MessageID, reader)
	if err != nil {
		h.pushError(c, err)
		return
	}
	if !updated {
		return
	}

	if err := h.storage.DecrUnread(msg.RoomID, reader); err != nil {
		h.log.Warn("unread decrement failed", zap.String("room_id", msg.RoomID), zap.Error(err))
	}

	readEv := models.ServerEvent{
		Type: models.EventMessageRead,
		Data: models.MessageReadPayload{
			MessageID: msg.ID,
			RoomID:    msg.RoomID,
			ReaderID:  reader,
		},
	}
	for _, sc := range h.sessions[msg.SenderID] {
		h.push(sc, readEv)
	}

	// Keep the reader's other devices' badges in sync.
	if count, err := h.storage.UnreadCount(msg.RoomID, reader); err == nil {
		countEv := models.ServerEvent{
			Type: models.EventUnreadCount,
			Data: models.UnreadCountPayload{RoomID: msg.RoomID, Count: count},
		}
		for sid, rc := range h.sessions[reader] {
			if sid != c.GetSessionID() {
				h.push(rc, countEv)
			}
		}
	}
}

// handleChatHistory serves one cursor page, newest first.
func (h *Hub) handleChatHistory(c Client, p models.ChatHistoryPayload) {
	identity := c.GetIdentity()

	roomID := p.RoomID
	derived := false
	if roomID == "" {
		if p.OtherID == "" {
			h.pushError(c, apperr.New(apperr.CodeValidationFailed, "room_id or other_id required"))
			return
		}
		roomID = models.DeriveRoomID(p.RFQID, identity, p.OtherID)
		derived = true
	}

	room, err := h.storage.GetRoom(roomID)
	if err != nil {
		if derived && apperr.Is(err, apperr.CodeNotFound) {
			// Nothing was ever said between the pair; an empty page, not an
			// error. An explicitly named room that does not exist stays
			// NOT_FOUND.
			h.push(c, models.ServerEvent{
				Type: models.EventHistoryPage,
				Data: models.HistoryPagePayload{RoomID: roomID, Messages: []models.Message{}},
			})
			return
		}
		h.pushError(c, err)
		return
	}
	if !room.HasParticipant(identity) {
		h.pushError(c, apperr.New(apperr.CodeForbidden, "not a participant of this room"))
		return
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	msgs, hasMore, err := h.storage.History(room.RoomID, p.BeforeID, limit)
	if err != nil {
		h.pushError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	h.push(c, models.ServerEvent{
		Type: models.EventHistoryPage,
		Data: models.HistoryPagePayload{RoomID: room.RoomID, Messages: msgs, HasMore: hasMore},
	})
}

// handleTyping refreshes or clears the caller's typing entry and relays the
// indicator to the other sessions in the room. Best-effort: failures are
// never surfaced to the user.
func (h *Hub) handleTyping(c Client, p models.TypingPayload, start bool) {
	identity := c.GetIdentity()
	if !h.sessionJoined(c.GetSessionID(), p.RoomID) {
		return
	}

	eventType := models.EventTypingStop
	if start {
		h.presence.StartTyping(p.RoomID, identity)
		eventType = models.EventTypingStart
	} else {
		h.presence.StopTyping(p.RoomID, identity)
	}
	h.broadcastTyping(p.RoomID, identity, eventType)
}

// broadcastTyping relays a typing indicator to every room session that does
// not belong to the typist.
func (h *Hub) broadcastTyping(roomID, typist, eventType string) {
	ev := models.ServerEvent{
		Type: eventType,
		Data: models.TypingNoticePayload{RoomID: roomID, SenderID: typist},
	}
	for _, member := range h.rooms[roomID] {
		if member.GetIdentity() != typist {
			h.push(member, ev)
		}
	}
}
