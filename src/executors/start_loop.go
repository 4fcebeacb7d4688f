package executors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/breaker"
	"orderexecutor/src/connectors"
	"orderexecutor/src/database"
	"orderexecutor/src/engine"
	"orderexecutor/src/events"
	"orderexecutor/src/ratelimit"
	"orderexecutor/src/repository"
	"orderexecutor/src/risk"
	"orderexecutor/src/validation"
)

// BuildEngine assembles the execution engine from env config: one guarded
// gateway per configured venue, the risk gate, the validator's tradable set
// and the durable audit repository when the database is enabled.
func BuildEngine(ctx context.Context) (*engine.Engine, *events.Publisher, error) {
	config := GetConfig()

	if config.TargetVenue == "" {
		return nil, nil, errors.New("target_venue not set")
	}

	tradable, err := parseTradableSymbols(config.TradableSymbols)
	if err != nil {
		logger.WithError(err).Error("Failed to parse tradable symbols")
		return nil, nil, err
	}

	client := connectors.NewClient(config.VenueAPIKey, config.VenueAPISecret, config.VenueBaseURL, config.VenueTimeout)

	limiter := ratelimit.New(config.RateLimitCapacity, config.RateLimitWindow)
	brk := breaker.New(breaker.Config{
		Venue:            config.TargetVenue,
		FailureThreshold: config.BreakerFailureThreshold,
		FailureWindow:    config.BreakerFailureWindow,
		CoolDown:         config.BreakerCoolDown,
	})

	feed := connectors.NewNotificationFeed(config.TargetVenue, config.VenueFeedURL, config.VenueAPIKey, config.VenueAPISecret)
	if err := feed.Connect(ctx); err != nil {
		logger.WithError(err).WithField("venue", config.TargetVenue).
			Error("Failed to connect notification feed")
		return nil, nil, err
	}

	gateway := connectors.NewGateway(config.TargetVenue, client, limiter, brk, feed)

	gate := risk.NewGate(config.RiskBaseURL, config.RiskDeadline)

	publisher := events.NewPublisher(config.EventBuffer)

	store := engine.NewStore()
	fills := engine.NewFillProcessor(config.FastFillLatency)
	validator := validation.NewValidator(tradable)
	gateways := map[string]connectors.ExchangeGateway{config.TargetVenue: gateway}
	engineConfig := engine.Config{
		SubmitAckTimeout:  config.SubmitAckTimeout,
		RequeueBaseDelay:  config.RequeueBaseDelay,
		RequeueMaxDelay:   config.RequeueMaxDelay,
		MaxSubmitAttempts: config.MaxSubmitAttempts,
	}

	var eng *engine.Engine
	if database.MainDB != nil {
		repo := repository.NewOrderRepository()
		eng = engine.New(store, publisher, fills, validator, gate, repo, gateways, engineConfig)
	} else {
		logger.Warn("database disabled, running without a durable audit trail")
		eng = engine.New(store, publisher, fills, validator, gate, nil, gateways, engineConfig)
	}

	eng.ConsumeNotifications(ctx, gateway)
	drainEvents(ctx, publisher)

	logger.WithFields(logger.Fields{
		"venue":    config.TargetVenue,
		"symbols":  len(tradable),
		"base_url": config.VenueBaseURL,
	}).Info("execution engine assembled")

	return eng, publisher, nil
}

// StartLoop builds the engine and blocks until the context is cancelled,
// then drains in-flight work.
func StartLoop(ctx context.Context) error {
	eng, _, err := BuildEngine(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Println("loop stopped")
	eng.Drain()
	return nil
}

// drainEvents keeps the publisher channels moving for deployments without a
// downstream consumer wired in. Each event is logged as it arrives; order is
// preserved per channel.
func drainEvents(ctx context.Context, publisher *events.Publisher) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-publisher.StatusUpdates():
				logger.WithFields(logger.Fields{
					"event_id":        ev.EventID,
					"client_order_id": ev.ClientOrderID,
					"from":            ev.FromStatus,
					"to":              ev.ToStatus,
				}).Info("order status changed")
			case ev := <-publisher.Fills():
				logger.WithFields(logger.Fields{
					"event_id":        ev.EventID,
					"client_order_id": ev.ClientOrderID,
					"fill_id":         ev.FillID,
					"quantity":        ev.Quantity,
					"price":           ev.Price,
					"quality_score":   ev.ExecutionQualityScore,
				}).Info("order fill")
			case ev := <-publisher.Completions():
				logger.WithFields(logger.Fields{
					"event_id":        ev.EventID,
					"client_order_id": ev.ClientOrderID,
					"final_status":    ev.FinalStatus,
					"filled_quantity": ev.TotalFilledQuantity,
				}).Info("order completed")
			}
		}
	}()
}

// parseTradableSymbols turns "SYM:min:max,SYM:min:max" into the validator's
// lot-constraint table.
func parseTradableSymbols(raw string) (map[string]validation.LotConstraint, error) {
	tradable := make(map[string]validation.LotConstraint)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed tradable symbol entry %q", entry)
		}

		minQty, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("bad min quantity in %q: %w", entry, err)
		}
		maxQty, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("bad max quantity in %q: %w", entry, err)
		}
		if maxQty.LessThan(minQty) {
			return nil, fmt.Errorf("max below min in %q", entry)
		}

		tradable[strings.ToUpper(parts[0])] = validation.LotConstraint{
			MinQuantity: minQty,
			MaxQuantity: maxQty,
		}
	}

	if len(tradable) == 0 {
		return nil, errors.New("no tradable symbols configured")
	}

	return tradable, nil
}
