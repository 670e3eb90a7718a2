package handler

import (
	"go.uber.org/zap"

	"quotedesk/backend/internal/auth"
	"quotedesk/backend/internal/chathub"
)

// DomainNotifier is the bridge surface the HTTP ingest endpoints drive.
type DomainNotifier interface {
	RFQUpdated(rfqID string, payload map[string]any)
	QuoteSubmitted(rfqID string, payload map[string]any)
}

// Handler carries the HTTP surface's dependencies.
type Handler struct {
	Hub      *chathub.Hub
	Verifier *auth.JWTVerifier
	Notifier DomainNotifier
	Log      *zap.Logger
}

func NewHandler(hub *chathub.Hub, verifier *auth.JWTVerifier, notifier DomainNotifier, log *zap.Logger) *Handler {
	return &Handler{Hub: hub, Verifier: verifier, Notifier: notifier, Log: log}
}
