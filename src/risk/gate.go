package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/model"
)

// ErrRiskRejected is returned when the risk collaborator blocks an order.
var ErrRiskRejected = errors.New("risk rejected")

// ReasonCheckTimeout marks orders rejected because the risk answer did not
// arrive inside the deadline. Fail-safe: unknown risk status never submits.
const ReasonCheckTimeout = "risk-check-timeout"

// Outcome is the pre-trade decision from the risk-limit collaborator.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Decision carries the pre-trade outcome plus the collaborator's reason.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Approved is a convenience accessor.
func (d Decision) Approved() bool {
	return d.Outcome == OutcomeApproved
}

// Gate calls the external risk-limit service. Pre-trade checks block the
// submission path up to the configured deadline; post-trade checks are
// advisory and never block.
type Gate struct {
	http     *resty.Client
	deadline time.Duration
}

// NewGate builds a gate against the risk service base URL.
func NewGate(baseURL string, deadline time.Duration) *Gate {
	if deadline <= 0 {
		deadline = 50 * time.Millisecond
	}

	return &Gate{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(deadline),
		deadline: deadline,
	}
}

type preTradeRequest struct {
	ClientOrderID string `json:"client_order_id"`
	Venue         string `json:"venue"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	OrderType     string `json:"order_type"`
	Quantity      string `json:"quantity"`
	LimitPrice    string `json:"limit_price,omitempty"`
}

// PreTradeCheck asks the collaborator to approve the order. A timeout or any
// transport failure is treated as a rejection: the engine never submits an
// order whose risk status is unknown.
func (g *Gate) PreTradeCheck(ctx context.Context, order *model.Order) Decision {
	ctx, cancel := context.WithTimeout(ctx, g.deadline)
	defer cancel()

	req := preTradeRequest{
		ClientOrderID: order.ClientOrderID,
		Venue:         order.Venue,
		Symbol:        order.Symbol,
		Side:          order.Side,
		OrderType:     order.OrderType,
		Quantity:      order.RequestedQuantity.String(),
	}
	if order.LimitPrice != nil {
		req.LimitPrice = order.LimitPrice.String()
	}

	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/v1/pretrade")

	if err != nil {
		reason := "risk-check-failed"
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			reason = ReasonCheckTimeout
		}

		logger.WithError(err).WithFields(logger.Fields{
			"client_order_id": order.ClientOrderID,
			"reason":          reason,
		}).Warn("pre-trade check failed, rejecting fail-safe")

		return Decision{Outcome: OutcomeRejected, Reason: reason}
	}

	if resp.StatusCode() != 200 {
		logger.WithFields(logger.Fields{
			"client_order_id": order.ClientOrderID,
			"status":          resp.StatusCode(),
		}).Warn("risk service returned non-200, rejecting fail-safe")

		return Decision{
			Outcome: OutcomeRejected,
			Reason:  fmt.Sprintf("risk-service-status-%d", resp.StatusCode()),
		}
	}

	var decision Decision
	if err := json.Unmarshal(resp.Body(), &decision); err != nil {
		logger.WithError(err).Warn("failed to decode risk decision, rejecting fail-safe")
		return Decision{Outcome: OutcomeRejected, Reason: "risk-decision-unreadable"}
	}

	logger.WithFields(logger.Fields{
		"client_order_id": order.ClientOrderID,
		"outcome":         decision.Outcome,
		"reason":          decision.Reason,
	}).Debug("pre-trade check answered")

	return decision
}

type postTradeRequest struct {
	ClientOrderID string `json:"client_order_id"`
	FillID        string `json:"fill_id"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
}

// PostTradeCheck notifies the collaborator about a recorded fill. Advisory
// and non-blocking: the result never gates an already-submitted order.
func (g *Gate) PostTradeCheck(order *model.Order, fill *model.OrderFill) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := g.http.R().
			SetContext(ctx).
			SetBody(postTradeRequest{
				ClientOrderID: order.ClientOrderID,
				FillID:        fill.FillID,
				Symbol:        order.Symbol,
				Price:         fill.Price.String(),
				Quantity:      fill.Quantity.String(),
			}).
			Post("/v1/posttrade")
		if err != nil {
			logger.WithError(err).WithFields(logger.Fields{
				"client_order_id": order.ClientOrderID,
				"fill_id":         fill.FillID,
			}).Warn("post-trade notification failed")
		}
	}()
}
