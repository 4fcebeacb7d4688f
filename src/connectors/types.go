package connectors

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// NotificationKind enumerates the push messages a venue delivers after a
// submission. Delivery is at-least-once: duplicates and late messages are
// expected and handled downstream.
type NotificationKind string

const (
	NotificationAck           NotificationKind = "ack"
	NotificationFill          NotificationKind = "fill"
	NotificationReject        NotificationKind = "reject"
	NotificationCancelConfirm NotificationKind = "cancel_confirm"
)

// VenueFill carries one execution inside a fill notification.
type VenueFill struct {
	FillID   string          `json:"fill_id"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	IsMaker  bool            `json:"is_maker"`
}

// VenueNotification is a push message keyed by the venue-assigned order ID.
// Sequence is the venue-reported ordering when the venue provides one.
type VenueNotification struct {
	Kind          NotificationKind `json:"kind"`
	Venue         string           `json:"venue"`
	VenueOrderID  string           `json:"venue_order_id"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
	Sequence      int64            `json:"sequence,omitempty"`
	Code          int              `json:"code,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Fill          *VenueFill       `json:"fill,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// VenueOrderStatus is the answer to a reconciliation queryStatus call.
type VenueOrderStatus struct {
	VenueOrderID   string          `json:"venue_order_id"`
	ClientOrderID  string          `json:"client_order_id"`
	Status         string          `json:"status"` // open / filled / cancelled / rejected
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	AveragePrice   decimal.Decimal `json:"average_price"`
}

// SubmitRequest is what the gateway needs to place an order on the venue.
type SubmitRequest struct {
	ClientOrderID string           `json:"client_order_id"`
	Symbol        string           `json:"symbol"`
	Side          string           `json:"side"`
	OrderType     string           `json:"order_type"`
	TimeInForce   string           `json:"time_in_force"`
	Quantity      decimal.Decimal  `json:"quantity"`
	LimitPrice    *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice     *decimal.Decimal `json:"stop_price,omitempty"`
}

// ExchangeGateway is the per-venue adapter the engine submits through. Every
// call passes the venue's rate limiter and circuit breaker before any network
// interaction.
type ExchangeGateway interface {
	Venue() string
	Submit(ctx context.Context, req SubmitRequest) (venueOrderID string, err error)
	Cancel(ctx context.Context, venueOrderID string) error
	QueryStatus(ctx context.Context, venueOrderID string) (*VenueOrderStatus, error)
	Notifications() <-chan VenueNotification
}
