package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderexecutor/src/model"
)

// Downstream topics. For a given order, events appear on each topic in the
// exact order the transitions were applied.
const (
	TopicStatusUpdates = "status-updates"
	TopicFills         = "fills"
	TopicCompletions   = "completions"
)

// StatusUpdateEvent is emitted on every applied transition.
type StatusUpdateEvent struct {
	EventID       string            `json:"event_id"`
	ClientOrderID string            `json:"order_id"`
	FromStatus    model.OrderStatus `json:"from_status"`
	ToStatus      model.OrderStatus `json:"to_status"`
	Reason        string            `json:"reason,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// FillEvent is emitted on every recorded fill.
type FillEvent struct {
	EventID               string          `json:"event_id"`
	ClientOrderID         string          `json:"order_id"`
	FillID                string          `json:"fill_id"`
	Price                 decimal.Decimal `json:"price"`
	Quantity              decimal.Decimal `json:"quantity"`
	IsMaker               bool            `json:"is_maker"`
	ExecutionQualityScore int             `json:"execution_quality_score"`
	Timestamp             time.Time       `json:"timestamp"`
}

// CompletionEvent is emitted once, on entering any terminal state.
type CompletionEvent struct {
	EventID             string            `json:"event_id"`
	ClientOrderID       string            `json:"order_id"`
	FinalStatus         model.OrderStatus `json:"final_status"`
	AverageFillPrice    decimal.Decimal   `json:"average_fill_price"`
	TotalFilledQuantity decimal.Decimal   `json:"total_filled_quantity"`
	Timestamp           time.Time         `json:"timestamp"`
}

func newEventID() string {
	return uuid.NewString()
}
