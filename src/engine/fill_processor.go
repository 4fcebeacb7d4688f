package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/model"
)

// Execution-quality scoring weights.
const (
	qualityBaseScore       = 50
	qualityImprovementBump = 20
	qualityMakerBump       = 10
	qualityLatencyBump     = 10
	qualityMin             = 0
	qualityMax             = 100
)

// FillProcessor turns venue fill notifications into quality-scored fill
// records and updates the order's cumulative fill state. Always invoked
// inside the owning order's single-writer path.
type FillProcessor struct {
	// Fills completing faster than this earn the latency bump.
	FastLatency time.Duration

	now func() time.Time
}

// NewFillProcessor creates a processor with the configured fast-latency
// threshold.
func NewFillProcessor(fastLatency time.Duration) *FillProcessor {
	if fastLatency <= 0 {
		fastLatency = 500 * time.Millisecond
	}
	return &FillProcessor{FastLatency: fastLatency, now: time.Now}
}

// Process scores the fill, appends it to the order and recomputes the
// quantity-weighted average price and filled quantity. Returns an error when
// the fill would push filledQuantity past requestedQuantity — the caller
// treats that as a reconciliation conflict, never as a partial apply.
func (p *FillProcessor) Process(order *model.Order, fill *model.OrderFill) error {
	newFilled := order.FilledQuantity.Add(fill.Quantity)
	if newFilled.GreaterThan(order.RequestedQuantity) {
		return fmt.Errorf("fill %s overfills order %s: %s filled of %s requested",
			fill.FillID, order.ClientOrderID, newFilled, order.RequestedQuantity)
	}

	fill.ExecutionLatencyMs = p.latencyMs(order, fill)
	fill.PriceImprovement = priceImprovement(order, fill.Price)
	fill.Slippage = slippage(order, fill.Price)
	fill.ExecutionQualityScore = p.score(fill)

	// Running quantity-weighted mean over all fills.
	prevNotional := order.AverageFillPrice.Mul(order.FilledQuantity)
	fillNotional := fill.Price.Mul(fill.Quantity)
	order.AverageFillPrice = prevNotional.Add(fillNotional).Div(newFilled)
	order.FilledQuantity = newFilled

	order.Fills = append(order.Fills, *fill)

	logger.WithFields(logger.Fields{
		"client_order_id": order.ClientOrderID,
		"fill_id":         fill.FillID,
		"price":           fill.Price,
		"qty":             fill.Quantity,
		"filled_qty":      order.FilledQuantity,
		"avg_price":       order.AverageFillPrice,
		"quality_score":   fill.ExecutionQualityScore,
	}).Info("fill recorded")

	return nil
}

// Complete reports whether the order's requested quantity is now fully filled.
func (p *FillProcessor) Complete(order *model.Order) bool {
	return order.FilledQuantity.Equal(order.RequestedQuantity)
}

func (p *FillProcessor) latencyMs(order *model.Order, fill *model.OrderFill) int64 {
	submittedAt := order.CreatedAt
	if order.SubmittedAt != nil {
		submittedAt = *order.SubmittedAt
	}

	occurredAt := fill.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = p.now()
	}

	latency := occurredAt.Sub(submittedAt)
	if latency < 0 {
		return 0
	}
	return latency.Milliseconds()
}

// priceImprovement is the signed difference between the fill price and the
// order's expected price, oriented so a favorable fill is positive: buys
// improve by filling below the reference, sells by filling above it.
func priceImprovement(order *model.Order, fillPrice decimal.Decimal) decimal.Decimal {
	ref := expectedPrice(order)
	if ref == nil {
		return decimal.Zero
	}

	if order.Side == model.OrderSideBuy {
		return ref.Sub(fillPrice)
	}
	return fillPrice.Sub(*ref)
}

// slippage is |fillPrice - referenceMarketPrice| / referenceMarketPrice.
func slippage(order *model.Order, fillPrice decimal.Decimal) decimal.Decimal {
	ref := referenceMarketPrice(order)
	if ref == nil || ref.Sign() <= 0 {
		return decimal.Zero
	}
	return fillPrice.Sub(*ref).Abs().Div(*ref)
}

// expectedPrice prefers the limit price (what the caller asked for), falling
// back to the reference market price carried on the request.
func expectedPrice(order *model.Order) *decimal.Decimal {
	if order.LimitPrice != nil && order.LimitPrice.Sign() > 0 {
		return order.LimitPrice
	}
	if order.ReferencePrice != nil && order.ReferencePrice.Sign() > 0 {
		return order.ReferencePrice
	}
	return nil
}

// referenceMarketPrice prefers the market reference carried on the request,
// falling back to the limit price.
func referenceMarketPrice(order *model.Order) *decimal.Decimal {
	if order.ReferencePrice != nil && order.ReferencePrice.Sign() > 0 {
		return order.ReferencePrice
	}
	if order.LimitPrice != nil && order.LimitPrice.Sign() > 0 {
		return order.LimitPrice
	}
	return nil
}

func (p *FillProcessor) score(fill *model.OrderFill) int {
	score := qualityBaseScore

	if fill.PriceImprovement.Sign() > 0 {
		score += qualityImprovementBump
	}
	if fill.IsMaker {
		score += qualityMakerBump
	}
	if fill.ExecutionLatencyMs >= 0 && time.Duration(fill.ExecutionLatencyMs)*time.Millisecond < p.FastLatency {
		score += qualityLatencyBump
	}

	if score < qualityMin {
		score = qualityMin
	}
	if score > qualityMax {
		score = qualityMax
	}
	return score
}
