package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"orderexecutor/src/breaker"
	"orderexecutor/src/connectors"
	"orderexecutor/src/events"
	"orderexecutor/src/model"
	"orderexecutor/src/ratelimit"
	"orderexecutor/src/risk"
	"orderexecutor/src/validation"
)

type fakeGateway struct {
	mu sync.Mutex

	venue       string
	submitErr   []error // consumed per call; nil entry means success
	submitHold  chan struct{} // when set, Submit blocks until it is closed
	submitCalls int
	cancelCalls int
	queryStatus *connectors.VenueOrderStatus
	queryErr    error
	notes       chan connectors.VenueNotification
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		venue: "simex",
		notes: make(chan connectors.VenueNotification, 16),
	}
}

func (g *fakeGateway) Venue() string { return g.venue }

func (g *fakeGateway) Submit(_ context.Context, req connectors.SubmitRequest) (string, error) {
	g.mu.Lock()
	g.submitCalls++
	var err error
	if len(g.submitErr) > 0 {
		err = g.submitErr[0]
		g.submitErr = g.submitErr[1:]
	}
	hold := g.submitHold
	g.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if err != nil {
		return "", err
	}
	return "venue-" + req.ClientOrderID, nil
}

func (g *fakeGateway) Cancel(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelCalls++
	return nil
}

func (g *fakeGateway) QueryStatus(context.Context, string) (*connectors.VenueOrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	return g.queryStatus, nil
}

func (g *fakeGateway) Notifications() <-chan connectors.VenueNotification { return g.notes }

func (g *fakeGateway) submits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitCalls
}

func (g *fakeGateway) cancels() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelCalls
}

type stubRisk struct {
	mu         sync.Mutex
	decision   risk.Decision
	postTrades int
}

func (s *stubRisk) PreTradeCheck(context.Context, *model.Order) risk.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

func (s *stubRisk) PostTradeCheck(*model.Order, *model.OrderFill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postTrades++
}

func approveAll() *stubRisk {
	return &stubRisk{decision: risk.Decision{Outcome: risk.OutcomeApproved}}
}

func newTestEngine(gateway connectors.ExchangeGateway, gate riskGate, cfg Config) (*Engine, *events.Publisher) {
	publisher := events.NewPublisher(256)
	validator := validation.NewValidator(map[string]validation.LotConstraint{
		"BTCUSDT": {MinQuantity: dec("0.001"), MaxQuantity: dec("1000")},
	})

	eng := New(
		NewStore(),
		publisher,
		NewFillProcessor(500*time.Millisecond),
		validator,
		gate,
		nil,
		map[string]connectors.ExchangeGateway{"simex": gateway},
		cfg,
	)
	return eng, publisher
}

func marketRequest(id string) model.OrderRequest {
	return model.OrderRequest{
		ClientOrderID:  id,
		Venue:          "simex",
		Symbol:         "BTCUSDT",
		Side:           model.OrderSideBuy,
		OrderType:      model.OrderTypeMarket,
		Quantity:       dec("10"),
		ReferencePrice: decPtr("100"),
	}
}

func ackFor(order *model.Order) connectors.VenueNotification {
	return connectors.VenueNotification{
		Kind:         connectors.NotificationAck,
		Venue:        "simex",
		VenueOrderID: order.VenueOrderID,
		OccurredAt:   time.Now().UTC(),
	}
}

func fillFor(order *model.Order, fillID, price, qty string) connectors.VenueNotification {
	return connectors.VenueNotification{
		Kind:         connectors.NotificationFill,
		Venue:        "simex",
		VenueOrderID: order.VenueOrderID,
		Fill: &connectors.VenueFill{
			FillID:   fillID,
			Price:    dec(price),
			Quantity: dec(qty),
		},
		OccurredAt: time.Now().UTC(),
	}
}

func waitForStatus(t *testing.T, eng *Engine, clientOrderID string, want model.OrderStatus) *model.Order {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		order, err := eng.Status(clientOrderID)
		if err == nil && order.Status == want {
			return order
		}
		time.Sleep(5 * time.Millisecond)
	}
	order, _ := eng.Status(clientOrderID)
	t.Fatalf("order never reached %s, last seen %+v", want, order)
	return nil
}

// TestSubmitLifecycleToFilled drives a market order for 10 through ack and
// two partial fills of 6 and 4, asserting the status walk and the weighted
// average price.
func TestSubmitLifecycleToFilled(t *testing.T) {
	gateway := newFakeGateway()
	gate := approveAll()
	eng, publisher := newTestEngine(gateway, gate, DefaultConfig())

	order, err := eng.Submit(context.Background(), marketRequest("ord-1"))
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if order.Status != model.OrderStatusSubmitted {
		t.Fatalf("expected submitted, got %s", order.Status)
	}
	if order.VenueOrderID != "venue-ord-1" {
		t.Fatalf("venue order id not bound, got %q", order.VenueOrderID)
	}

	eng.HandleNotification(ackFor(order))
	eng.HandleNotification(fillFor(order, "f-1", "99", "6"))
	eng.HandleNotification(fillFor(order, "f-2", "101", "4"))

	final, err := eng.Status("ord-1")
	if err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if final.Status != model.OrderStatusFilled {
		t.Fatalf("expected filled, got %s", final.Status)
	}
	if !final.FilledQuantity.Equal(dec("10")) {
		t.Fatalf("expected filled quantity 10, got %s", final.FilledQuantity)
	}
	if !final.AverageFillPrice.Equal(dec("99.8")) {
		t.Fatalf("expected weighted average 99.8, got %s", final.AverageFillPrice)
	}

	// Status events arrive in transition order.
	wantWalk := []model.OrderStatus{
		model.OrderStatusSubmitted,
		model.OrderStatusAcknowledged,
		model.OrderStatusPartiallyFilled,
		model.OrderStatusFilled,
	}
	for i, want := range wantWalk {
		ev := <-publisher.StatusUpdates()
		if ev.ToStatus != want {
			t.Fatalf("status event %d: expected %s, got %s", i, want, ev.ToStatus)
		}
		if ev.EventID == "" {
			t.Fatalf("status event %d missing event id", i)
		}
	}

	if ev := <-publisher.Fills(); ev.FillID != "f-1" {
		t.Fatalf("expected first fill event f-1, got %s", ev.FillID)
	}
	if ev := <-publisher.Fills(); ev.FillID != "f-2" {
		t.Fatalf("expected second fill event f-2, got %s", ev.FillID)
	}

	completion := <-publisher.Completions()
	if completion.FinalStatus != model.OrderStatusFilled {
		t.Fatalf("expected completion with filled, got %s", completion.FinalStatus)
	}
	if !completion.TotalFilledQuantity.Equal(dec("10")) {
		t.Fatalf("expected completion quantity 10, got %s", completion.TotalFilledQuantity)
	}

	gate.mu.Lock()
	postTrades := gate.postTrades
	gate.mu.Unlock()
	if postTrades != 2 {
		t.Fatalf("expected 2 post-trade notifications, got %d", postTrades)
	}
}

// TestSubmitDuplicateClientOrderID submits the same request twice and
// verifies exactly one venue order is created.
func TestSubmitDuplicateClientOrderID(t *testing.T) {
	gateway := newFakeGateway()
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	first, err := eng.Submit(context.Background(), marketRequest("ord-dup"))
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	second, err := eng.Submit(context.Background(), marketRequest("ord-dup"))
	if err != nil {
		t.Fatalf("duplicate submit must not error: %v", err)
	}

	if gateway.submits() != 1 {
		t.Fatalf("duplicate submission reached the venue %d times", gateway.submits())
	}
	if second.VenueOrderID != first.VenueOrderID {
		t.Fatalf("duplicate returned a different venue order: %q vs %q", second.VenueOrderID, first.VenueOrderID)
	}
}

// TestSubmitRiskRejected verifies a risk rejection never reaches the venue
// and leaves the order Rejected with the collaborator's reason.
func TestSubmitRiskRejected(t *testing.T) {
	gateway := newFakeGateway()
	gate := &stubRisk{decision: risk.Decision{Outcome: risk.OutcomeRejected, Reason: "position-limit"}}
	eng, _ := newTestEngine(gateway, gate, DefaultConfig())

	order, err := eng.Submit(context.Background(), marketRequest("ord-risk"))
	if !errors.Is(err, risk.ErrRiskRejected) {
		t.Fatalf("expected ErrRiskRejected, got %v", err)
	}
	if order.Status != model.OrderStatusRejected {
		t.Fatalf("expected rejected, got %s", order.Status)
	}
	if order.Reason != "position-limit" {
		t.Fatalf("expected collaborator reason recorded, got %q", order.Reason)
	}
	if gateway.submits() != 0 {
		t.Fatal("risk-rejected order must never reach the venue")
	}
}

// TestSubmitValidationRejected verifies an invalid request is recorded as
// Rejected and a retry of the same bad request stays idempotent.
func TestSubmitValidationRejected(t *testing.T) {
	gateway := newFakeGateway()
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	req := marketRequest("ord-bad")
	req.Quantity = dec("-1")

	order, err := eng.Submit(context.Background(), req)
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if order == nil || order.Status != model.OrderStatusRejected {
		t.Fatalf("expected rejected order snapshot, got %+v", order)
	}

	if _, err := eng.Submit(context.Background(), req); err != nil {
		t.Fatalf("retried duplicate must return the recorded order, got %v", err)
	}
	if gateway.submits() != 0 {
		t.Fatal("invalid order must never reach the venue")
	}
}

// TestSubmitRateLimitedRequeues verifies a rate-limited submission leaves the
// order Pending and a later attempt succeeds without caller involvement.
func TestSubmitRateLimitedRequeues(t *testing.T) {
	gateway := newFakeGateway()
	gateway.submitErr = []error{ratelimit.ErrRateLimitExceeded, nil}

	cfg := DefaultConfig()
	cfg.RequeueBaseDelay = 5 * time.Millisecond
	eng, _ := newTestEngine(gateway, approveAll(), cfg)

	order, err := eng.Submit(context.Background(), marketRequest("ord-rl"))
	if !errors.Is(err, ratelimit.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit error surfaced, got %v", err)
	}
	if order.Status != model.OrderStatusPending {
		t.Fatalf("rate-limited order must stay pending, got %s", order.Status)
	}

	final := waitForStatus(t, eng, "ord-rl", model.OrderStatusSubmitted)
	if final.VenueOrderID == "" {
		t.Fatal("re-queued submission never bound a venue order id")
	}
	if gateway.submits() != 2 {
		t.Fatalf("expected 2 submit attempts, got %d", gateway.submits())
	}
}

// TestSubmitAttemptsExhausted verifies an order gives up after the configured
// attempts against an unavailable venue and lands in Error.
func TestSubmitAttemptsExhausted(t *testing.T) {
	gateway := newFakeGateway()
	gateway.submitErr = []error{
		breaker.ErrVenueUnavailable,
		breaker.ErrVenueUnavailable,
		breaker.ErrVenueUnavailable,
	}

	cfg := DefaultConfig()
	cfg.RequeueBaseDelay = 2 * time.Millisecond
	cfg.MaxSubmitAttempts = 3
	eng, _ := newTestEngine(gateway, approveAll(), cfg)

	if _, err := eng.Submit(context.Background(), marketRequest("ord-down")); err == nil {
		t.Fatal("expected submission error")
	}

	final := waitForStatus(t, eng, "ord-down", model.OrderStatusError)
	if final.VenueOrderID != "" {
		t.Fatalf("failed order must not carry a venue order id, got %q", final.VenueOrderID)
	}
	if gateway.submits() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", gateway.submits())
	}
}

// TestSubmitVenueReject maps a venue business reject onto Rejected with the
// decoded reason.
func TestSubmitVenueReject(t *testing.T) {
	gateway := newFakeGateway()
	gateway.submitErr = []error{&connectors.VenueError{Code: 11051, Msg: "insufficient balance"}}
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	if _, err := eng.Submit(context.Background(), marketRequest("ord-rej")); err == nil {
		t.Fatal("expected venue reject to surface")
	}

	final, err := eng.Status("ord-rej")
	if err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if final.Status != model.OrderStatusRejected {
		t.Fatalf("expected rejected, got %s", final.Status)
	}
	if final.Reason == "" {
		t.Fatal("expected a decoded reject reason")
	}
}

// TestCancelTerminalOrderRefused verifies cancelling a filled order returns
// ErrInvalidStateTransition and leaves state unchanged.
func TestCancelTerminalOrderRefused(t *testing.T) {
	gateway := newFakeGateway()
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	order, err := eng.Submit(context.Background(), marketRequest("ord-fill"))
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	eng.HandleNotification(ackFor(order))
	eng.HandleNotification(fillFor(order, "f-1", "100", "10"))

	if err := eng.Cancel(context.Background(), "ord-fill"); !errors.Is(err, model.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}

	final, _ := eng.Status("ord-fill")
	if final.Status != model.OrderStatusFilled {
		t.Fatalf("cancel of a terminal order must not change state, got %s", final.Status)
	}
	if gateway.cancelCalls != 0 {
		t.Fatal("cancel of a terminal order must not reach the venue")
	}
}

// TestCancelLiveOrder routes a cancel through the venue and applies the
// confirmation notification.
func TestCancelLiveOrder(t *testing.T) {
	gateway := newFakeGateway()
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	order, err := eng.Submit(context.Background(), marketRequest("ord-cxl"))
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	eng.HandleNotification(ackFor(order))

	if err := eng.Cancel(context.Background(), "ord-cxl"); err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	if gateway.cancelCalls != 1 {
		t.Fatalf("expected one venue cancel call, got %d", gateway.cancelCalls)
	}

	// Still acknowledged until the venue confirms.
	inFlight, _ := eng.Status("ord-cxl")
	if inFlight.Status != model.OrderStatusAcknowledged {
		t.Fatalf("expected acknowledged while cancel is in flight, got %s", inFlight.Status)
	}

	eng.HandleNotification(connectors.VenueNotification{
		Kind:         connectors.NotificationCancelConfirm,
		Venue:        "simex",
		VenueOrderID: order.VenueOrderID,
	})

	final, _ := eng.Status("ord-cxl")
	if final.Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", final.Status)
	}

	// A late fill after the cancel is dropped, not applied.
	eng.HandleNotification(fillFor(order, "f-late", "100", "1"))
	after, _ := eng.Status("ord-cxl")
	if !after.FilledQuantity.IsZero() {
		t.Fatalf("late fill after cancel must not apply, got %s filled", after.FilledQuantity)
	}
}

// TestCancelPendingOrderLocal cancels before submission without any venue
// contact.
func TestCancelPendingOrderLocal(t *testing.T) {
	gateway := newFakeGateway()
	gateway.submitErr = []error{ratelimit.ErrRateLimitExceeded}

	cfg := DefaultConfig()
	cfg.RequeueBaseDelay = time.Minute // keep the retry far away
	eng, _ := newTestEngine(gateway, approveAll(), cfg)

	_, _ = eng.Submit(context.Background(), marketRequest("ord-local"))

	if err := eng.Cancel(context.Background(), "ord-local"); err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	final, _ := eng.Status("ord-local")
	if final.Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", final.Status)
	}
	if gateway.cancelCalls != 0 {
		t.Fatal("pending cancel must not reach the venue")
	}
}

// TestCancelDuringInFlightSubmit cancels while the venue submit call is still
// in flight and verifies the resulting venue order is compensated with a
// venue cancel instead of being silently orphaned.
func TestCancelDuringInFlightSubmit(t *testing.T) {
	gateway := newFakeGateway()
	gateway.submitHold = make(chan struct{})
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = eng.Submit(context.Background(), marketRequest("ord-race"))
	}()

	deadline := time.Now().Add(2 * time.Second)
	for gateway.submits() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("submission never reached the venue")
		}
		time.Sleep(time.Millisecond)
	}

	if err := eng.Cancel(context.Background(), "ord-race"); err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	mid, _ := eng.Status("ord-race")
	if mid.Status != model.OrderStatusCancelled {
		t.Fatalf("expected cancelled before the venue answered, got %s", mid.Status)
	}

	close(gateway.submitHold)
	<-done

	final, _ := eng.Status("ord-race")
	if final.Status != model.OrderStatusCancelled {
		t.Fatalf("late submit success must not revive the order, got %s", final.Status)
	}
	if gateway.cancels() != 1 {
		t.Fatalf("expected one compensating venue cancel, got %d", gateway.cancels())
	}
}

// TestDuplicateFillDropped delivers the same fill twice and verifies the
// quantity is counted once.
func TestDuplicateFillDropped(t *testing.T) {
	gateway := newFakeGateway()
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	order, err := eng.Submit(context.Background(), marketRequest("ord-dupfill"))
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	eng.HandleNotification(ackFor(order))
	eng.HandleNotification(fillFor(order, "f-1", "100", "4"))
	eng.HandleNotification(fillFor(order, "f-1", "100", "4"))

	final, _ := eng.Status("ord-dupfill")
	if !final.FilledQuantity.Equal(dec("4")) {
		t.Fatalf("duplicate fill must be dropped, got %s filled", final.FilledQuantity)
	}
	if final.Status != model.OrderStatusPartiallyFilled {
		t.Fatalf("expected partially filled, got %s", final.Status)
	}
}

// TestFillBeforeAck verifies a fill arriving ahead of the ack recovers the
// acknowledgment instead of being refused.
func TestFillBeforeAck(t *testing.T) {
	gateway := newFakeGateway()
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	order, err := eng.Submit(context.Background(), marketRequest("ord-early"))
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	eng.HandleNotification(fillFor(order, "f-1", "100", "10"))

	final, _ := eng.Status("ord-early")
	if final.Status != model.OrderStatusFilled {
		t.Fatalf("expected filled, got %s", final.Status)
	}
}

// TestAckWhilePendingRecovered delivers an ack during a re-queue backoff,
// while the order is still Pending, and verifies the Submitted step is
// recovered instead of the ack being refused.
func TestAckWhilePendingRecovered(t *testing.T) {
	gateway := newFakeGateway()
	gateway.submitErr = []error{ratelimit.ErrRateLimitExceeded}

	cfg := DefaultConfig()
	cfg.RequeueBaseDelay = time.Minute // keep the retry far away
	eng, _ := newTestEngine(gateway, approveAll(), cfg)

	_, _ = eng.Submit(context.Background(), marketRequest("ord-pendack"))

	eng.HandleNotification(connectors.VenueNotification{
		Kind:          connectors.NotificationAck,
		Venue:         "simex",
		VenueOrderID:  "venue-ord-pendack",
		ClientOrderID: "ord-pendack",
		OccurredAt:    time.Now().UTC(),
	})

	final, _ := eng.Status("ord-pendack")
	if final.Status != model.OrderStatusAcknowledged {
		t.Fatalf("expected acknowledged, got %s", final.Status)
	}
	if final.VenueOrderID != "venue-ord-pendack" {
		t.Fatalf("venue order id not bound from the ack, got %q", final.VenueOrderID)
	}
}

// TestFillWhilePendingRecovered delivers a fill while the order is still
// Pending and verifies the fill applies through the recovered lifecycle.
func TestFillWhilePendingRecovered(t *testing.T) {
	gateway := newFakeGateway()
	gateway.submitErr = []error{ratelimit.ErrRateLimitExceeded}

	cfg := DefaultConfig()
	cfg.RequeueBaseDelay = time.Minute
	eng, _ := newTestEngine(gateway, approveAll(), cfg)

	_, _ = eng.Submit(context.Background(), marketRequest("ord-pendfill"))

	eng.HandleNotification(connectors.VenueNotification{
		Kind:          connectors.NotificationFill,
		Venue:         "simex",
		VenueOrderID:  "venue-ord-pendfill",
		ClientOrderID: "ord-pendfill",
		Fill: &connectors.VenueFill{
			FillID:   "f-1",
			Price:    dec("100"),
			Quantity: dec("10"),
		},
		OccurredAt: time.Now().UTC(),
	})

	final, _ := eng.Status("ord-pendfill")
	if final.Status != model.OrderStatusFilled {
		t.Fatalf("expected filled, got %s", final.Status)
	}
	if !final.FilledQuantity.Equal(dec("10")) {
		t.Fatalf("expected filled quantity 10, got %s", final.FilledQuantity)
	}
}

// TestUnknownNotificationDropped delivers a notification for a venue order
// the store has never seen and verifies nothing breaks.
func TestUnknownNotificationDropped(t *testing.T) {
	gateway := newFakeGateway()
	eng, _ := newTestEngine(gateway, approveAll(), DefaultConfig())

	eng.HandleNotification(connectors.VenueNotification{
		Kind:         connectors.NotificationAck,
		Venue:        "simex",
		VenueOrderID: "venue-ghost",
	})
}

// TestAckTimeoutRecovered verifies a lost ack is recovered by queryStatus
// reconciliation rather than a retransmission.
func TestAckTimeoutRecovered(t *testing.T) {
	gateway := newFakeGateway()
	gateway.queryStatus = &connectors.VenueOrderStatus{Status: "open"}

	cfg := DefaultConfig()
	cfg.SubmitAckTimeout = 20 * time.Millisecond
	eng, _ := newTestEngine(gateway, approveAll(), cfg)

	if _, err := eng.Submit(context.Background(), marketRequest("ord-lostack")); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	final := waitForStatus(t, eng, "ord-lostack", model.OrderStatusAcknowledged)
	if final.Reason != "recovered by reconciliation" {
		t.Fatalf("expected reconciliation recovery, got %q", final.Reason)
	}
	if gateway.submits() != 1 {
		t.Fatalf("reconciliation must never retransmit, got %d submits", gateway.submits())
	}
}

// TestAckTimeoutUnreconciled verifies an unanswerable reconciliation moves
// the order to Error for operator attention.
func TestAckTimeoutUnreconciled(t *testing.T) {
	gateway := newFakeGateway()
	gateway.queryErr = fmt.Errorf("venue query down")

	cfg := DefaultConfig()
	cfg.SubmitAckTimeout = 20 * time.Millisecond
	eng, _ := newTestEngine(gateway, approveAll(), cfg)

	if _, err := eng.Submit(context.Background(), marketRequest("ord-noanswer")); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	final := waitForStatus(t, eng, "ord-noanswer", model.OrderStatusError)
	if final.Status != model.OrderStatusError {
		t.Fatalf("expected error state, got %s", final.Status)
	}
}
