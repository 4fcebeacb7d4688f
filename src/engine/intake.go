package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/breaker"
	"orderexecutor/src/connectors"
	"orderexecutor/src/model"
	"orderexecutor/src/ratelimit"
	"orderexecutor/src/risk"
)

// Submit is the entry point for one inbound execution request: de-duplicate,
// validate, risk-gate, then dispatch to the venue. A request whose
// clientOrderID was seen before returns the existing order's current state
// and never creates a second venue order.
func (e *Engine) Submit(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if existing, ok := e.store.Get(req.ClientOrderID); ok && req.ClientOrderID != "" {
		logger.WithFields(logger.Fields{
			"client_order_id": req.ClientOrderID,
			"status":          existing.Status,
		}).Info("duplicate submission, returning existing order")
		return existing, nil
	}

	order, err := e.validator.Validate(req)
	if err != nil {
		return e.rejectInvalid(req, err)
	}

	order.CreatedAt = e.now().UTC()
	order.LastUpdatedAt = order.CreatedAt

	order, created := e.store.Create(order)
	if !created {
		return order, nil
	}

	e.persistNewOrder(order)

	decision := e.risk.PreTradeCheck(ctx, order)
	if !decision.Approved() {
		reason := decision.Reason
		if reason == "" {
			reason = "risk rejected"
		}

		_ = e.store.Do(order.ClientOrderID, func(o *model.Order) error {
			return e.transition(o, model.OrderStatusRejected, reason, model.UpdateSourceInternal)
		})

		snap, _ := e.store.Get(order.ClientOrderID)
		return snap, fmt.Errorf("pre-trade check: %s: %w", reason, risk.ErrRiskRejected)
	}

	if err := e.attemptSubmit(ctx, order.ClientOrderID, 1); err != nil {
		snap, _ := e.store.Get(order.ClientOrderID)
		return snap, err
	}

	snap, _ := e.store.Get(order.ClientOrderID)
	return snap, nil
}

// rejectInvalid records a validation failure in the lifecycle and audit
// trail when the request is identifiable, so retried bad requests stay
// idempotent too.
func (e *Engine) rejectInvalid(req model.OrderRequest, cause error) (*model.Order, error) {
	logger.WithError(cause).WithFields(logger.Fields{
		"client_order_id": req.ClientOrderID,
		"symbol":          req.Symbol,
	}).Warn("order request failed validation")

	if req.ClientOrderID == "" {
		return nil, cause
	}

	order := &model.Order{
		ClientOrderID:     req.ClientOrderID,
		Venue:             req.Venue,
		Symbol:            req.Symbol,
		Side:              req.Side,
		OrderType:         req.OrderType,
		TimeInForce:       req.TimeInForce,
		RequestedQuantity: req.Quantity,
		Status:            model.OrderStatusPending,
		CreatedAt:         e.now().UTC(),
		LastUpdatedAt:     e.now().UTC(),
	}

	order, created := e.store.Create(order)
	if !created {
		return order, cause
	}

	e.persistNewOrder(order)

	_ = e.store.Do(order.ClientOrderID, func(o *model.Order) error {
		return e.transition(o, model.OrderStatusRejected, cause.Error(), model.UpdateSourceInternal)
	})

	snap, _ := e.store.Get(order.ClientOrderID)
	return snap, cause
}

func (e *Engine) persistNewOrder(order *model.Order) {
	if e.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = e.store.Do(order.ClientOrderID, func(o *model.Order) error {
		if err := e.repo.SaveOrder(ctx, o); err != nil {
			logger.WithError(err).WithField("client_order_id", o.ClientOrderID).
				Error("failed to persist new order")
		}
		return nil
	})
}

// attemptSubmit dispatches one submission try through the venue gateway.
// RateLimitExceeded and an open breaker re-queue the order with backoff and
// leave it Pending; a venue business reject is terminal; transport failures
// that survive the client's own retries put the order in Error.
func (e *Engine) attemptSubmit(ctx context.Context, clientOrderID string, attempt int) error {
	order, ok := e.store.Get(clientOrderID)
	if !ok {
		return ErrUnknownOrder
	}
	if order.Status != model.OrderStatusPending {
		return nil
	}

	gateway, ok := e.gateways[order.Venue]
	if !ok {
		err := fmt.Errorf("no gateway configured for venue %q", order.Venue)
		_ = e.store.Do(clientOrderID, func(o *model.Order) error {
			return e.transition(o, model.OrderStatusError, err.Error(), model.UpdateSourceInternal)
		})
		return err
	}

	submitReq := connectors.SubmitRequest{
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		OrderType:     order.OrderType,
		TimeInForce:   order.TimeInForce,
		Quantity:      order.RequestedQuantity,
		LimitPrice:    order.LimitPrice,
		StopPrice:     order.StopPrice,
	}

	venueOrderID, err := gateway.Submit(ctx, submitReq)
	if err != nil {
		return e.handleSubmitFailure(ctx, clientOrderID, attempt, err)
	}

	now := e.now().UTC()
	var staleStatus model.OrderStatus
	applyErr := e.store.Do(clientOrderID, func(o *model.Order) error {
		if o.Status != model.OrderStatusPending {
			staleStatus = o.Status
			return nil
		}
		if o.VenueOrderID == "" {
			o.VenueOrderID = venueOrderID
		}
		o.SubmittedAt = &now
		return e.transition(o, model.OrderStatusSubmitted, "submitted to venue", model.UpdateSourceInternal)
	})
	if applyErr != nil {
		return applyErr
	}

	if staleStatus.IsTerminal() {
		// The order finished locally while the venue call was in flight. The
		// venue copy is cancelled rather than adopted.
		logger.WithFields(logger.Fields{
			"client_order_id": clientOrderID,
			"venue_order_id":  venueOrderID,
			"status":          staleStatus,
		}).Error("ReconciliationConflict: venue order created after local terminal state")

		if err := gateway.Cancel(ctx, venueOrderID); err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"client_order_id": clientOrderID,
				"venue_order_id":  venueOrderID,
			}).Error("compensating venue cancel failed")
		}
		return nil
	}

	if err := e.store.BindVenueOrder(clientOrderID, venueOrderID); err != nil {
		logger.WithError(err).WithField("client_order_id", clientOrderID).
			Error("failed to bind venue order id")
	}

	e.scheduleAckTimeout(ctx, clientOrderID, venueOrderID, order.Venue)
	return nil
}

func (e *Engine) handleSubmitFailure(ctx context.Context, clientOrderID string, attempt int, err error) error {
	var venueErr *connectors.VenueError
	if errors.As(err, &venueErr) {
		_ = e.store.Do(clientOrderID, func(o *model.Order) error {
			return e.transition(o, model.OrderStatusRejected,
				connectors.RejectReason(venueErr.Code), model.UpdateSourceVenueReject)
		})
		return err
	}

	retryable := errors.Is(err, ratelimit.ErrRateLimitExceeded) || errors.Is(err, breaker.ErrVenueUnavailable)
	if retryable {
		if attempt >= e.cfg.MaxSubmitAttempts {
			exhausted := fmt.Errorf("submission attempts exhausted after %d tries: %w", attempt, err)
			_ = e.store.Do(clientOrderID, func(o *model.Order) error {
				return e.transition(o, model.OrderStatusError, exhausted.Error(), model.UpdateSourceInternal)
			})
			return exhausted
		}

		e.requeue(ctx, clientOrderID, attempt)
		return err
	}

	// Transport fault that survived the client's bounded retries.
	_ = e.store.Do(clientOrderID, func(o *model.Order) error {
		return e.transition(o, model.OrderStatusError, err.Error(), model.UpdateSourceInternal)
	})
	return err
}

// requeue re-attempts a Pending submission after a bounded exponential
// backoff, rather than stalling the caller's pipeline.
func (e *Engine) requeue(ctx context.Context, clientOrderID string, attempt int) {
	delay := e.cfg.RequeueBaseDelay << uint(attempt-1)
	if delay > e.cfg.RequeueMaxDelay || delay <= 0 {
		delay = e.cfg.RequeueMaxDelay
	}

	logger.WithFields(logger.Fields{
		"client_order_id": clientOrderID,
		"attempt":         attempt,
		"delay":           delay,
	}).Info("submission re-queued")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := e.attemptSubmit(ctx, clientOrderID, attempt+1); err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"client_order_id": clientOrderID,
				"attempt":         attempt + 1,
			}).Warn("re-queued submission attempt failed")
		}
	}()
}

// Cancel routes a cancel request through the order's single-writer path. A
// cancel on a terminal order returns ErrInvalidStateTransition and leaves
// state unchanged; a Pending order cancels locally without venue contact.
func (e *Engine) Cancel(ctx context.Context, clientOrderID string) error {
	var venue, venueOrderID string
	var needsVenueCancel bool

	err := e.store.Do(clientOrderID, func(o *model.Order) error {
		if !o.Status.IsCancellable() {
			logger.WithFields(logger.Fields{
				"client_order_id": clientOrderID,
				"status":          o.Status,
			}).Warn("cancel rejected: order not cancellable")
			return model.ErrInvalidStateTransition
		}

		if o.Status == model.OrderStatusPending {
			return e.transition(o, model.OrderStatusCancelled,
				"cancelled before submission", model.UpdateSourceCancelRequest)
		}

		venue = o.Venue
		venueOrderID = o.VenueOrderID
		needsVenueCancel = true
		return nil
	})
	if err != nil || !needsVenueCancel {
		return err
	}

	gateway, ok := e.gateways[venue]
	if !ok {
		return fmt.Errorf("no gateway configured for venue %q", venue)
	}

	// Confirmation arrives as a cancel-confirm notification through the same
	// single-writer path, so it cannot race an in-flight fill.
	if err := gateway.Cancel(ctx, venueOrderID); err != nil {
		logger.WithError(err).WithField("client_order_id", clientOrderID).
			Error("venue cancel request failed")
		return err
	}

	return nil
}

// Status returns a copy of the order's current state.
func (e *Engine) Status(clientOrderID string) (*model.Order, error) {
	order, ok := e.store.Get(clientOrderID)
	if !ok {
		return nil, ErrUnknownOrder
	}
	return order, nil
}
