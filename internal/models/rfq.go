package models

import (
	"time"

	"github.com/lib/pq"
)

// RFQ statuses owned by the surrounding business logic. The messaging core
// only reads them: terminal statuses archive the bound rooms.
const (
	RFQStatusOpen      = "open"
	RFQStatusQuoted    = "quoted"
	RFQStatusAwarded   = "awarded"
	RFQStatusClosed    = "closed"
	RFQStatusCancelled = "cancelled"
)

// RFQ is a read model over the request-for-quote records maintained by the
// CRUD side of the platform. The messaging core never writes it; it is
// consulted for participant checks when a room is bound to an RFQ.
type RFQ struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	BuyerID    string         `gorm:"type:text;not null;index" json:"buyer_id"`
	Title      string         `gorm:"type:text" json:"title"`
	Status     string         `gorm:"type:text;not null;default:open" json:"status"`
	Categories pq.StringArray `gorm:"type:text[]" json:"categories"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsTerminalRFQStatus reports whether status ends the negotiation. Rooms
// bound to an RFQ in a terminal status are archived.
func IsTerminalRFQStatus(status string) bool {
	switch status {
	case RFQStatusAwarded, RFQStatusClosed, RFQStatusCancelled:
		return true
	}
	return false
}
