package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// rfqEventRequest is the ingest body for both notification endpoints.
type rfqEventRequest struct {
	RFQID   string         `json:"rfq_id" binding:"required"`
	Payload map[string]any `json:"payload"`
}

// RFQUpdated ingests an "RFQ updated" notification from the CRUD side.
// Always 202: delivery into the chat channel is best-effort and must never
// fail the caller's transaction.
func (h *Handler) RFQUpdated(c *gin.Context) {
	var req rfqEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rfq_id is required"})
		return
	}
	h.Notifier.RFQUpdated(req.RFQID, req.Payload)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// QuoteSubmitted ingests a "new quote submitted" notification.
func (h *Handler) QuoteSubmitted(c *gin.Context) {
	var req rfqEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rfq_id is required"})
		return
	}
	h.Notifier.QuoteSubmitted(req.RFQID, req.Payload)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
