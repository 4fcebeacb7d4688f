package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/connectors"
	"orderexecutor/src/events"
	"orderexecutor/src/mapper"
	"orderexecutor/src/model"
	"orderexecutor/src/risk"
	"orderexecutor/src/validation"
)

// auditRepository persists the append-only trail. The in-memory store stays
// authoritative for live state; persistence failures are logged, never allowed
// to stall the execution path.
type auditRepository interface {
	SaveOrder(ctx context.Context, order *model.Order) error
	RecordStatusUpdate(ctx context.Context, update *model.OrderStatusUpdate) error
	RecordFill(ctx context.Context, fill *model.OrderFill) error
}

// riskGate is the boundary to the external risk-limit collaborator.
type riskGate interface {
	PreTradeCheck(ctx context.Context, order *model.Order) risk.Decision
	PostTradeCheck(order *model.Order, fill *model.OrderFill)
}

// Config bounds the engine's waiting and retrying behaviour.
type Config struct {
	// SubmitAckTimeout is how long to wait for a venue ack before running a
	// queryStatus reconciliation instead of a blind retransmission.
	SubmitAckTimeout time.Duration
	// RequeueBaseDelay/RequeueMaxDelay bound the backoff for re-attempting a
	// submission after RateLimitExceeded or an open breaker.
	RequeueBaseDelay time.Duration
	RequeueMaxDelay  time.Duration
	// MaxSubmitAttempts caps re-queue cycles before the order goes to Error.
	MaxSubmitAttempts int
}

// DefaultConfig returns the engine timing defaults.
func DefaultConfig() Config {
	return Config{
		SubmitAckTimeout:  10 * time.Second,
		RequeueBaseDelay:  250 * time.Millisecond,
		RequeueMaxDelay:   15 * time.Second,
		MaxSubmitAttempts: 6,
	}
}

// Engine sequences validation, risk gating, venue dispatch and lifecycle
// tracking for every inbound order.
type Engine struct {
	store     *Store
	publisher *events.Publisher
	fills     *FillProcessor
	validator *validation.Validator
	risk      riskGate
	repo      auditRepository
	gateways  map[string]connectors.ExchangeGateway
	cfg       Config

	wg  sync.WaitGroup
	now func() time.Time
}

// New wires an engine. repo may be nil when running without persistence
// (tests); gateways is keyed by venue name.
func New(
	store *Store,
	publisher *events.Publisher,
	fills *FillProcessor,
	validator *validation.Validator,
	gate riskGate,
	repo auditRepository,
	gateways map[string]connectors.ExchangeGateway,
	cfg Config,
) *Engine {
	if cfg.SubmitAckTimeout <= 0 {
		cfg.SubmitAckTimeout = DefaultConfig().SubmitAckTimeout
	}
	if cfg.RequeueBaseDelay <= 0 {
		cfg.RequeueBaseDelay = DefaultConfig().RequeueBaseDelay
	}
	if cfg.RequeueMaxDelay <= 0 {
		cfg.RequeueMaxDelay = DefaultConfig().RequeueMaxDelay
	}
	if cfg.MaxSubmitAttempts <= 0 {
		cfg.MaxSubmitAttempts = DefaultConfig().MaxSubmitAttempts
	}

	return &Engine{
		store:     store,
		publisher: publisher,
		fills:     fills,
		validator: validator,
		risk:      gate,
		repo:      repo,
		gateways:  gateways,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Store exposes the order store for read-side consumers (handlers, replay).
func (e *Engine) Store() *Store {
	return e.store
}

// transition applies one lifecycle step. Must be called inside the owning
// order's single-writer path. Invalid transitions leave state unchanged and
// return ErrInvalidStateTransition; they are logged, never silently applied.
func (e *Engine) transition(order *model.Order, to model.OrderStatus, reason, source string) error {
	from := order.Status

	if !model.CanTransition(from, to) {
		logger.WithFields(logger.Fields{
			"client_order_id": order.ClientOrderID,
			"from":            from,
			"to":              to,
			"source":          source,
		}).Warn("invalid state transition attempted")
		return model.ErrInvalidStateTransition
	}

	now := e.now().UTC()
	order.Status = to
	order.Reason = reason
	order.LastUpdatedAt = now

	update := model.OrderStatusUpdate{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		Source:     source,
		OccurredAt: now,
	}
	order.StatusUpdates = append(order.StatusUpdates, update)

	logger.WithFields(logger.Fields{
		"client_order_id": order.ClientOrderID,
		"from":            from,
		"to":              to,
		"reason":          reason,
		"source":          source,
	}).Info("order transitioned")

	e.persistTransition(order, &update)

	// Emission inside the single-writer path keeps per-order event order
	// identical to the applied transition order.
	e.publisher.PublishStatusUpdate(order, from, to, reason)
	if to.IsTerminal() {
		e.publisher.PublishCompletion(order)
	}

	return nil
}

func (e *Engine) persistTransition(order *model.Order, update *model.OrderStatusUpdate) {
	if e.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.repo.SaveOrder(ctx, order); err != nil {
		logger.WithError(err).WithField("client_order_id", order.ClientOrderID).
			Error("failed to persist order")
	}
	update.OrderID = order.ID
	if err := e.repo.RecordStatusUpdate(ctx, update); err != nil {
		logger.WithError(err).WithField("client_order_id", order.ClientOrderID).
			Error("failed to persist status update")
	}
}

func (e *Engine) persistFill(order *model.Order, fill *model.OrderFill) {
	if e.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fill.OrderID = order.ID
	if err := e.repo.RecordFill(ctx, fill); err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"client_order_id": order.ClientOrderID,
			"fill_id":         fill.FillID,
		}).Error("failed to persist fill")
	}
}

// ConsumeNotifications drains a gateway's push channel until it closes or ctx
// is cancelled. One goroutine per venue keeps venue ordering intact.
func (e *Engine) ConsumeNotifications(ctx context.Context, gateway connectors.ExchangeGateway) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case note, ok := <-gateway.Notifications():
				if !ok {
					return
				}
				e.HandleNotification(note)
			}
		}
	}()
}

// HandleNotification routes one venue push message into the owning order's
// single-writer path. Notifications for unknown orders are logged and
// dropped; at-least-once venue delivery makes duplicates and late messages
// expected.
func (e *Engine) HandleNotification(note connectors.VenueNotification) {
	clientOrderID, ok := e.store.ResolveVenueOrder(note.VenueOrderID)
	if !ok {
		clientOrderID = note.ClientOrderID
	}
	if clientOrderID == "" {
		logger.WithFields(logger.Fields{
			"venue":          note.Venue,
			"venue_order_id": note.VenueOrderID,
			"kind":           note.Kind,
		}).Warn("notification for unknown venue order dropped")
		return
	}

	err := e.store.Do(clientOrderID, func(order *model.Order) error {
		return e.applyNotification(order, note)
	})
	if err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"client_order_id": clientOrderID,
			"kind":            note.Kind,
		}).Warn("venue notification not applied")
	}
}

func (e *Engine) applyNotification(order *model.Order, note connectors.VenueNotification) error {
	if order.Status.IsTerminal() {
		// Late or duplicate delivery for a completed order is a no-op. A fill
		// reported after Cancelled is an unexpected discrepancy and is
		// surfaced as a reconciliation conflict.
		entry := logger.WithFields(logger.Fields{
			"client_order_id": order.ClientOrderID,
			"status":          order.Status,
			"kind":            note.Kind,
		})
		if note.Kind == connectors.NotificationFill && order.Status == model.OrderStatusCancelled {
			entry.Error("ReconciliationConflict: fill reported for cancelled order")
		} else {
			entry.Info("late venue notification for terminal order dropped")
		}
		return nil
	}

	switch note.Kind {
	case connectors.NotificationAck:
		return e.applyAck(order, note)
	case connectors.NotificationFill:
		return e.applyFill(order, note)
	case connectors.NotificationReject:
		return e.transition(order, model.OrderStatusRejected,
			mapper.RejectReasonFromNotification(note), model.UpdateSourceVenueReject)
	case connectors.NotificationCancelConfirm:
		return e.transition(order, model.OrderStatusCancelled, "cancel confirmed by venue",
			model.UpdateSourceCancelRequest)
	default:
		return fmt.Errorf("unknown notification kind %q", note.Kind)
	}
}

func (e *Engine) applyAck(order *model.Order, note connectors.VenueNotification) error {
	if order.Status == model.OrderStatusAcknowledged || order.Status == model.OrderStatusPartiallyFilled {
		// Duplicate ack under at-least-once delivery.
		return nil
	}

	if order.VenueOrderID == "" && note.VenueOrderID != "" {
		order.VenueOrderID = note.VenueOrderID
		if err := e.store.BindVenueOrder(order.ClientOrderID, note.VenueOrderID); err != nil {
			return err
		}
	}

	// A venue push can outrun the submit call's own response while the order
	// is still Pending, or arrive during a re-queue backoff. Recover the
	// Submitted step first instead of refusing the ack.
	if order.Status == model.OrderStatusPending {
		if order.SubmittedAt == nil {
			now := e.now().UTC()
			order.SubmittedAt = &now
		}
		if err := e.transition(order, model.OrderStatusSubmitted,
			"venue push outran submit response", model.UpdateSourceVenueAck); err != nil {
			return err
		}
	}

	return e.transition(order, model.OrderStatusAcknowledged, "venue acknowledged", model.UpdateSourceVenueAck)
}

func (e *Engine) applyFill(order *model.Order, note connectors.VenueNotification) error {
	// A venue can report the first fill before the ack arrives, or even
	// before the submit call itself has returned.
	if order.Status == model.OrderStatusSubmitted || order.Status == model.OrderStatusPending {
		if err := e.applyAck(order, note); err != nil {
			return err
		}
	}

	fill, err := mapper.FillFromNotification(note, order.ID)
	if err != nil {
		return err
	}

	for i := range order.Fills {
		if order.Fills[i].FillID == fill.FillID {
			logger.WithFields(logger.Fields{
				"client_order_id": order.ClientOrderID,
				"fill_id":         fill.FillID,
			}).Info("duplicate fill dropped")
			return nil
		}
	}

	if err := e.fills.Process(order, fill); err != nil {
		logger.WithError(err).WithField("client_order_id", order.ClientOrderID).
			Error("ReconciliationConflict: fill could not be applied")
		return e.transition(order, model.OrderStatusError, err.Error(), model.UpdateSourceReconciliation)
	}

	// Fill event before the transition so a completing fill is always seen
	// before its completion event.
	e.persistFill(order, fill)
	e.publisher.PublishFill(order, fill)

	next := model.OrderStatusPartiallyFilled
	reason := "partial fill"
	if e.fills.Complete(order) {
		next = model.OrderStatusFilled
		reason = "fully filled"
	}
	if err := e.transition(order, next, reason, model.UpdateSourceVenueFill); err != nil {
		return err
	}

	e.risk.PostTradeCheck(order, fill)

	return nil
}

// scheduleAckTimeout reconciles via queryStatus when no ack arrives inside
// the submission timeout. Never retransmits blindly: a duplicate venue order
// is worse than a late one.
func (e *Engine) scheduleAckTimeout(ctx context.Context, clientOrderID, venueOrderID, venue string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.SubmitAckTimeout):
		}

		order, ok := e.store.Get(clientOrderID)
		if !ok || order.Status != model.OrderStatusSubmitted {
			return
		}

		e.reconcile(ctx, clientOrderID, venueOrderID, venue)
	}()
}

// reconcile pulls venue-side state for an order stuck in Submitted and
// applies the authoritative venue answer.
func (e *Engine) reconcile(ctx context.Context, clientOrderID, venueOrderID, venue string) {
	gateway, ok := e.gateways[venue]
	if !ok {
		return
	}

	status, err := gateway.QueryStatus(ctx, venueOrderID)
	if err != nil {
		logger.WithError(err).WithField("client_order_id", clientOrderID).
			Error("reconciliation query failed")

		_ = e.store.Do(clientOrderID, func(order *model.Order) error {
			if order.Status != model.OrderStatusSubmitted {
				return nil
			}
			return e.transition(order, model.OrderStatusError,
				fmt.Sprintf("unreconciled after ack timeout: %v", err), model.UpdateSourceTimeout)
		})
		return
	}

	mapped, err := mapper.StatusFromVenue(status.Status)
	if err != nil {
		logger.WithError(err).WithField("client_order_id", clientOrderID).
			Error("ReconciliationConflict: venue reported unknown status")
		return
	}

	_ = e.store.Do(clientOrderID, func(order *model.Order) error {
		if order.Status != model.OrderStatusSubmitted {
			// The ack raced the reconciliation; nothing to repair.
			return nil
		}

		switch mapped {
		case model.OrderStatusAcknowledged, model.OrderStatusPartiallyFilled, model.OrderStatusFilled:
			// The venue knows the order; the ack was lost. Recover the ack and
			// let fills flow in through the normal push path.
			return e.transition(order, model.OrderStatusAcknowledged,
				"recovered by reconciliation", model.UpdateSourceReconciliation)
		case model.OrderStatusCancelled, model.OrderStatusRejected:
			return e.transition(order, mapped, "venue state recovered by reconciliation",
				model.UpdateSourceReconciliation)
		default:
			return nil
		}
	})
}

// Drain waits for in-flight engine goroutines, then stops the store actors.
func (e *Engine) Drain() {
	e.wg.Wait()
	e.store.Close()
}
