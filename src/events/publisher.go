package events

import (
	"time"

	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/model"
)

// Publisher delivers events to downstream consumers over buffered channels,
// one per topic. Emission happens synchronously inside the per-order
// single-writer path, so per-order ordering is simply arrival order; there is
// no separate publisher goroutine that could reorder. Delivery is
// at-least-once and every event carries a unique EventID for deduplication.
type Publisher struct {
	statusUpdates chan StatusUpdateEvent
	fills         chan FillEvent
	completions   chan CompletionEvent

	now func() time.Time
}

// NewPublisher creates a publisher with the given per-topic buffer size.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}

	return &Publisher{
		statusUpdates: make(chan StatusUpdateEvent, buffer),
		fills:         make(chan FillEvent, buffer),
		completions:   make(chan CompletionEvent, buffer),
		now:           time.Now,
	}
}

// StatusUpdates is the status-updates topic.
func (p *Publisher) StatusUpdates() <-chan StatusUpdateEvent {
	return p.statusUpdates
}

// Fills is the fills topic.
func (p *Publisher) Fills() <-chan FillEvent {
	return p.fills
}

// Completions is the completions topic.
func (p *Publisher) Completions() <-chan CompletionEvent {
	return p.completions
}

// PublishStatusUpdate emits a status-update event. Blocks if the consumer
// falls more than a full buffer behind rather than dropping or reordering.
func (p *Publisher) PublishStatusUpdate(order *model.Order, from, to model.OrderStatus, reason string) {
	evt := StatusUpdateEvent{
		EventID:       newEventID(),
		ClientOrderID: order.ClientOrderID,
		FromStatus:    from,
		ToStatus:      to,
		Reason:        reason,
		Timestamp:     p.now().UTC(),
	}

	p.statusUpdates <- evt

	logger.WithFields(logger.Fields{
		"topic":    TopicStatusUpdates,
		"event_id": evt.EventID,
		"order_id": evt.ClientOrderID,
		"from":     from,
		"to":       to,
	}).Debug("status update published")
}

// PublishFill emits a fill event.
func (p *Publisher) PublishFill(order *model.Order, fill *model.OrderFill) {
	evt := FillEvent{
		EventID:               newEventID(),
		ClientOrderID:         order.ClientOrderID,
		FillID:                fill.FillID,
		Price:                 fill.Price,
		Quantity:              fill.Quantity,
		IsMaker:               fill.IsMaker,
		ExecutionQualityScore: fill.ExecutionQualityScore,
		Timestamp:             p.now().UTC(),
	}

	p.fills <- evt

	logger.WithFields(logger.Fields{
		"topic":    TopicFills,
		"event_id": evt.EventID,
		"order_id": evt.ClientOrderID,
		"fill_id":  evt.FillID,
	}).Debug("fill published")
}

// PublishCompletion emits a completion event for a terminal order.
func (p *Publisher) PublishCompletion(order *model.Order) {
	evt := CompletionEvent{
		EventID:             newEventID(),
		ClientOrderID:       order.ClientOrderID,
		FinalStatus:         order.Status,
		AverageFillPrice:    order.AverageFillPrice,
		TotalFilledQuantity: order.FilledQuantity,
		Timestamp:           p.now().UTC(),
	}

	p.completions <- evt

	logger.WithFields(logger.Fields{
		"topic":        TopicCompletions,
		"event_id":     evt.EventID,
		"order_id":     evt.ClientOrderID,
		"final_status": evt.FinalStatus,
	}).Info("completion published")
}
