package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const devTokenTTL = 72 * time.Hour

// IssueToken mints a JWT for an identity. Only routed in development mode;
// real tokens come from the platform's auth service.
func (h *Handler) IssueToken(c *gin.Context) {
	var req struct {
		Identity string `json:"identity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}

	token, err := h.Verifier.Mint(req.Identity, devTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "identity": req.Identity})
}
