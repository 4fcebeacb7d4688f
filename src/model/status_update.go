package model

import "time"

// Sources that can trigger a status transition. Recorded on every audit row
// so the trail can be replayed for debugging and compliance.
const (
	UpdateSourceVenueAck       = "venue-ack"
	UpdateSourceVenueFill      = "venue-fill"
	UpdateSourceVenueReject    = "venue-reject"
	UpdateSourceCancelRequest  = "cancel-request"
	UpdateSourceInternal       = "internal"
	UpdateSourceTimeout        = "internal-timeout"
	UpdateSourceReconciliation = "reconciliation"
)

// OrderStatusUpdate is the append-only audit record for one applied
// transition. Rows are never mutated after creation.
type OrderStatusUpdate struct {
	ID uint `gorm:"primaryKey" json:"id"`

	OrderID uint   `gorm:"index;not null" json:"order_id"`
	Order   *Order `gorm:"constraint:OnDelete:CASCADE" json:"order,omitempty"`

	FromStatus OrderStatus `gorm:"size:30;not null" json:"from_status"`
	ToStatus   OrderStatus `gorm:"size:30;not null" json:"to_status"`
	Reason     string      `gorm:"size:255" json:"reason"`
	Source     string      `gorm:"size:30;not null" json:"source"`

	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName allows controlling the exact table name for status updates.
func (OrderStatusUpdate) TableName() string {
	return "order_status_updates"
}
