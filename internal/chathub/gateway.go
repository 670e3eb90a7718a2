package chathub

import (
	"encoding/json"

	"go.uber.org/zap"

	"quotedesk/backend/internal/apperr"
	"quotedesk/backend/internal/models"
)

// route is the single demux point for inbound frames. It checks the session
// is authenticated, decodes and validates the typed payload for the event,
// and only then delegates — a malformed frame fails fast with no side
// effects.
func (h *Hub) route(c Client, frame []byte) {
	// A frame already queued when its session was dropped still arrives
	// here; ignore it.
	if c.Closed() {
		return
	}

	var ev models.ClientEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		h.pushError(c, apperr.New(apperr.CodeValidationFailed, "malformed event envelope"))
		return
	}

	if !c.Authenticated() {
		if ev.Type != models.EventAuth {
			h.pushError(c, apperr.New(apperr.CodeUnauthenticated, "authenticate first"))
			c.Close()
			return
		}
		h.handleAuth(c, ev.Data)
		return
	}

	switch ev.Type {
	case models.EventAuth:
		// Already authenticated; re-ack so a confused client can recover.
		h.push(c, ackEvent(c))

	case models.EventJoinRoom:
		var p models.JoinRoomPayload
		if !h.decode(c, ev.Data, &p) {
			return
		}
		h.handleJoinRoom(c, p)

	case models.EventLeaveRoom:
		var p models.LeaveRoomPayload
		if !h.decode(c, ev.Data, &p) {
			return
		}
		h.leaveRoomView(c, p.RoomID)

	case models.EventSendMessage:
		var p models.SendMessagePayload
		if !h.decode(c, ev.Data, &p) {
			return
		}
		h.handleSendMessage(c, p)

	case models.EventMarkRead:
		var p models.MarkReadPayload
		if !h.decode(c, ev.Data, &p) {
			return
		}
		h.handleMarkRead(c, p)

	case models.EventChatHistory:
		var p models.ChatHistoryPayload
		if !h.decode(c, ev.Data, &p) {
			return
		}
		h.handleChatHistory(c, p)

	case models.EventTypingStart:
		var p models.TypingPayload
		if !h.decode(c, ev.Data, &p) {
			return
		}
		h.handleTyping(c, p, true)

	case models.EventTypingStop:
		var p models.TypingPayload
		if !h.decode(c, ev.Data, &p) {
			return
		}
		h.handleTyping(c, p, false)

	default:
		h.pushError(c, apperr.New(apperr.CodeValidationFailed, "unknown event type: "+ev.Type))
	}
}

// decode unmarshals and validates a typed payload. On failure it reports
// VALIDATION_FAILED to the client and returns false.
func (h *Hub) decode(c Client, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		h.pushError(c, apperr.New(apperr.CodeValidationFailed, "malformed payload"))
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		h.pushError(c, apperr.Wrap(apperr.CodeValidationFailed, "invalid payload", err))
		return false
	}
	return true
}

func (h *Hub) handleAuth(c Client, raw json.RawMessage) {
	var p models.AuthPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Token == "" {
		h.pushError(c, apperr.New(apperr.CodeUnauthenticated, "credential required"))
		c.Close()
		return
	}

	identity, err := h.verifier.Verify(p.Token)
	if err != nil {
		h.log.Info("authentication failed", zap.String("session_id", c.GetSessionID()))
		h.pushError(c, err)
		c.Close()
		return
	}

	c.SetIdentity(identity)
	h.register(c)
}

func ackEvent(c Client) models.ServerEvent {
	return models.ServerEvent{
		Type: models.EventConnectionAck,
		Data: models.ConnectionAckPayload{
			SessionID: c.GetSessionID(),
			Identity:  c.GetIdentity(),
		},
	}
}
