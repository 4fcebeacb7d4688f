package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order side, type and time-in-force values accepted on inbound requests.
const (
	OrderSideBuy  = "buy"
	OrderSideSell = "sell"
)

const (
	OrderTypeMarket     = "market"
	OrderTypeLimit      = "limit"
	OrderTypeStopLoss   = "stop_loss"
	OrderTypeStopLimit  = "stop_limit"
	OrderTypeTakeProfit = "take_profit"
	OrderTypeIceberg    = "iceberg"
	OrderTypeTWAP       = "twap"
	OrderTypeVWAP       = "vwap"
)

const (
	TimeInForceGTC = "GTC"
	TimeInForceIOC = "IOC"
	TimeInForceFOK = "FOK"
	TimeInForceGTD = "GTD"
)

// OrderStatus constants represent the lifecycle of an order execution.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusAcknowledged    OrderStatus = "acknowledged"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusError           OrderStatus = "error"
)

// IsTerminal reports whether no further transitions are accepted.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusError:
		return true
	}
	return false
}

// IsCancellable reports whether a cancel request may still be accepted.
func (s OrderStatus) IsCancellable() bool {
	switch s {
	case OrderStatusPending, OrderStatusSubmitted, OrderStatusAcknowledged, OrderStatusPartiallyFilled:
		return true
	}
	return false
}

// allowedTransitions is the full lifecycle table. Cancelled and Error are
// reachable from every non-terminal state, Rejected only before the venue
// has acknowledged.
var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending: {
		OrderStatusSubmitted: true,
		OrderStatusRejected:  true,
		OrderStatusCancelled: true,
		OrderStatusError:     true,
	},
	OrderStatusSubmitted: {
		OrderStatusAcknowledged: true,
		OrderStatusRejected:     true,
		OrderStatusCancelled:    true,
		OrderStatusError:        true,
	},
	OrderStatusAcknowledged: {
		OrderStatusPartiallyFilled: true,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
		OrderStatusError:           true,
	},
	OrderStatusPartiallyFilled: {
		OrderStatusPartiallyFilled: true,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
		OrderStatusError:           true,
	},
}

// CanTransition reports whether the lifecycle table permits from -> to.
func CanTransition(from, to OrderStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Order represents an order that the engine routes to a venue and tracks to
// completion. ClientOrderID is the caller-assigned idempotency key;
// VenueOrderID is assigned exactly once on acknowledgment.
type Order struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ClientOrderID string `gorm:"size:64;uniqueIndex;not null" json:"client_order_id"`
	VenueOrderID  string `gorm:"size:255;index" json:"venue_order_id,omitempty"`
	Venue         string `gorm:"size:60;index;not null" json:"venue"`

	Symbol      string `gorm:"size:60;not null" json:"symbol"`
	Side        string `gorm:"size:10;not null" json:"side"`
	OrderType   string `gorm:"size:30;not null" json:"order_type"`
	TimeInForce string `gorm:"size:10;not null;default:GTC" json:"time_in_force"`

	RequestedQuantity decimal.Decimal  `gorm:"type:decimal(32,18);not null" json:"requested_quantity"`
	FilledQuantity    decimal.Decimal  `gorm:"type:decimal(32,18);not null" json:"filled_quantity"`
	AverageFillPrice  decimal.Decimal  `gorm:"type:decimal(32,18)" json:"average_fill_price"`
	LimitPrice        *decimal.Decimal `gorm:"type:decimal(32,18)" json:"limit_price,omitempty"`
	StopPrice         *decimal.Decimal `gorm:"type:decimal(32,18)" json:"stop_price,omitempty"`
	ReferencePrice    *decimal.Decimal `gorm:"type:decimal(32,18)" json:"reference_price,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`

	Status        OrderStatus `gorm:"size:30;not null;default:pending" json:"status"`
	Reason        string      `gorm:"size:255" json:"reason,omitempty"`
	SubmittedAt   *time.Time  `json:"submitted_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	LastUpdatedAt time.Time   `json:"last_updated_at"`

	Fills         []OrderFill         `gorm:"foreignKey:OrderID" json:"fills,omitempty"`
	StatusUpdates []OrderStatusUpdate `gorm:"foreignKey:OrderID" json:"status_updates,omitempty"`
}

// TableName allows controlling the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}

// RemainingQuantity returns what is still open on the venue.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.RequestedQuantity.Sub(o.FilledQuantity)
}

// OrderRequest is the inbound execution request produced by the signal side.
type OrderRequest struct {
	ClientOrderID  string           `json:"client_order_id"`
	Venue          string           `json:"venue"`
	Symbol         string           `json:"symbol"`
	Side           string           `json:"side"`
	OrderType      string           `json:"order_type"`
	TimeInForce    string           `json:"time_in_force"`
	Quantity       decimal.Decimal  `json:"quantity"`
	LimitPrice     *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice      *decimal.Decimal `json:"stop_price,omitempty"`
	ReferencePrice *decimal.Decimal `json:"reference_price,omitempty"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
}
