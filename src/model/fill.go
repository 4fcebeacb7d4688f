package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderFill stores one execution reported by the venue. Fills are append-only:
// rows are never edited or removed, and the sum of fill quantities for an
// order always equals the order's FilledQuantity.
type OrderFill struct {
	ID uint `gorm:"primaryKey" json:"id"`

	OrderID uint   `gorm:"index;not null" json:"order_id"`
	Order   *Order `gorm:"constraint:OnDelete:CASCADE" json:"order,omitempty"`

	FillID       string `gorm:"size:64;uniqueIndex;not null" json:"fill_id"`
	VenueOrderID string `gorm:"size:255;index" json:"venue_order_id"`

	Price    decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"price"`
	Quantity decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"quantity"`
	IsMaker  bool            `json:"is_maker"`

	// Execution-quality metrics computed when the fill is recorded.
	ExecutionLatencyMs    int64           `json:"execution_latency_ms"`
	PriceImprovement      decimal.Decimal `gorm:"type:decimal(32,18)" json:"price_improvement"`
	Slippage              decimal.Decimal `gorm:"type:decimal(32,18)" json:"slippage"`
	ExecutionQualityScore int             `json:"execution_quality_score"`

	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName allows controlling the exact table name for fills.
func (OrderFill) TableName() string {
	return "order_fills"
}
