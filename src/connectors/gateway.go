package connectors

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/breaker"
	"orderexecutor/src/ratelimit"
)

// Gateway is the per-venue ExchangeGateway implementation: a signed REST
// client wrapped by that venue's rate limiter and circuit breaker, plus the
// websocket push feed. Limiter and breaker state outlive individual orders
// and are shared by every order targeting the venue.
type Gateway struct {
	venue   string
	client  *Client
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	feed    *NotificationFeed
}

// NewGateway wires a venue adapter from its parts. Limiter and breaker are
// injected so tests can substitute fresh instances per venue.
func NewGateway(venue string, client *Client, limiter *ratelimit.Limiter, brk *breaker.Breaker, feed *NotificationFeed) *Gateway {
	return &Gateway{
		venue:   venue,
		client:  client,
		limiter: limiter,
		breaker: brk,
		feed:    feed,
	}
}

func (g *Gateway) Venue() string {
	return g.venue
}

// Notifications exposes the venue push channel.
func (g *Gateway) Notifications() <-chan VenueNotification {
	return g.feed.Notifications()
}

// guard applies admission control before any network interaction.
func (g *Gateway) guard() error {
	if err := g.limiter.Acquire(); err != nil {
		logger.WithField("venue", g.venue).Debug("venue admission exhausted")
		return err
	}
	if err := g.breaker.Allow(); err != nil {
		return err
	}
	return nil
}

// record reports the call outcome to the breaker. A venue business reject
// means the venue is reachable, so it does not count as a breaker failure.
func (g *Gateway) record(err error) {
	if err == nil {
		g.breaker.RecordSuccess()
		return
	}

	var venueErr *VenueError
	if errors.As(err, &venueErr) {
		g.breaker.RecordSuccess()
		return
	}

	g.breaker.RecordFailure()
}

// Submit places the order on the venue and returns the venue order ID.
func (g *Gateway) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if err := g.guard(); err != nil {
		return "", err
	}

	venueOrderID, err := g.client.PlaceOrder(ctx, req)
	g.record(err)
	if err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"venue":           g.venue,
			"client_order_id": req.ClientOrderID,
		}).Error("venue submit failed")
		return "", err
	}

	logger.WithFields(logger.Fields{
		"venue":           g.venue,
		"client_order_id": req.ClientOrderID,
		"venue_order_id":  venueOrderID,
	}).Info("order submitted to venue")

	return venueOrderID, nil
}

// Cancel requests cancellation of an open order on the venue.
func (g *Gateway) Cancel(ctx context.Context, venueOrderID string) error {
	if err := g.guard(); err != nil {
		return err
	}

	err := g.client.CancelOrder(ctx, venueOrderID)
	g.record(err)
	if err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"venue":          g.venue,
			"venue_order_id": venueOrderID,
		}).Error("venue cancel failed")
	}
	return err
}

// QueryStatus fetches venue-side state for reconciliation.
func (g *Gateway) QueryStatus(ctx context.Context, venueOrderID string) (*VenueOrderStatus, error) {
	if err := g.guard(); err != nil {
		return nil, err
	}

	status, err := g.client.QueryOrder(ctx, venueOrderID)
	g.record(err)
	if err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"venue":          g.venue,
			"venue_order_id": venueOrderID,
		}).Error("venue status query failed")
		return nil, err
	}
	return status, nil
}
