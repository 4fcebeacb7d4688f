package validation

import (
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/model"
)

// Error is a structural or business validation failure. The request never
// reaches the venue.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// LotConstraint bounds order quantity for one symbol on one venue.
type LotConstraint struct {
	MinQuantity decimal.Decimal
	MaxQuantity decimal.Decimal
}

// Validator performs structural and business validation of inbound requests.
type Validator struct {
	tradable map[string]LotConstraint
}

// NewValidator builds a validator for the given tradable set.
func NewValidator(tradable map[string]LotConstraint) *Validator {
	return &Validator{tradable: tradable}
}

// requiresLimitPrice lists order types that must carry a limit price.
var requiresLimitPrice = map[string]bool{
	model.OrderTypeLimit:     true,
	model.OrderTypeStopLimit: true,
	model.OrderTypeIceberg:   true,
}

// requiresStopPrice lists order types that must carry a stop/trigger price.
var requiresStopPrice = map[string]bool{
	model.OrderTypeStopLoss:   true,
	model.OrderTypeStopLimit:  true,
	model.OrderTypeTakeProfit: true,
}

var validOrderTypes = map[string]bool{
	model.OrderTypeMarket:     true,
	model.OrderTypeLimit:      true,
	model.OrderTypeStopLoss:   true,
	model.OrderTypeStopLimit:  true,
	model.OrderTypeTakeProfit: true,
	model.OrderTypeIceberg:    true,
	model.OrderTypeTWAP:       true,
	model.OrderTypeVWAP:       true,
}

var validTimeInForce = map[string]bool{
	model.TimeInForceGTC: true,
	model.TimeInForceIOC: true,
	model.TimeInForceFOK: true,
	model.TimeInForceGTD: true,
}

// Validate checks the request and returns a Pending order ready for the risk
// gate, or a *validation.Error. Duplicate detection against the store is the
// intake's first step and is not repeated here.
func (v *Validator) Validate(req model.OrderRequest) (*model.Order, error) {
	if req.ClientOrderID == "" {
		return nil, &Error{Field: "client_order_id", Reason: "required"}
	}
	if req.Venue == "" {
		return nil, &Error{Field: "venue", Reason: "required"}
	}

	constraint, ok := v.tradable[req.Symbol]
	if !ok {
		return nil, &Error{Field: "symbol", Reason: fmt.Sprintf("%q is not tradable", req.Symbol)}
	}

	if req.Side != model.OrderSideBuy && req.Side != model.OrderSideSell {
		return nil, &Error{Field: "side", Reason: fmt.Sprintf("unknown side %q", req.Side)}
	}

	if !validOrderTypes[req.OrderType] {
		return nil, &Error{Field: "order_type", Reason: fmt.Sprintf("unknown order type %q", req.OrderType)}
	}

	tif := req.TimeInForce
	if tif == "" {
		tif = model.TimeInForceGTC
	}
	if !validTimeInForce[tif] {
		return nil, &Error{Field: "time_in_force", Reason: fmt.Sprintf("unknown time in force %q", tif)}
	}

	if req.Quantity.Sign() <= 0 {
		return nil, &Error{Field: "quantity", Reason: "must be positive"}
	}
	if req.Quantity.LessThan(constraint.MinQuantity) {
		return nil, &Error{Field: "quantity", Reason: fmt.Sprintf("below venue lot minimum %s", constraint.MinQuantity)}
	}
	if constraint.MaxQuantity.Sign() > 0 && req.Quantity.GreaterThan(constraint.MaxQuantity) {
		return nil, &Error{Field: "quantity", Reason: fmt.Sprintf("above venue lot maximum %s", constraint.MaxQuantity)}
	}

	// Price fields must be present or absent consistent with the order type.
	if requiresLimitPrice[req.OrderType] {
		if req.LimitPrice == nil || req.LimitPrice.Sign() <= 0 {
			return nil, &Error{Field: "limit_price", Reason: fmt.Sprintf("required for %s orders", req.OrderType)}
		}
	} else if req.OrderType == model.OrderTypeMarket && req.LimitPrice != nil {
		return nil, &Error{Field: "limit_price", Reason: "not allowed for market orders"}
	}

	if requiresStopPrice[req.OrderType] {
		if req.StopPrice == nil || req.StopPrice.Sign() <= 0 {
			return nil, &Error{Field: "stop_price", Reason: fmt.Sprintf("required for %s orders", req.OrderType)}
		}
	}

	// Time-in-force compatibility with the order type.
	if tif == model.TimeInForceGTD && req.ExpiresAt == nil {
		return nil, &Error{Field: "expires_at", Reason: "required for GTD orders"}
	}
	if tif == model.TimeInForceIOC || tif == model.TimeInForceFOK {
		switch req.OrderType {
		case model.OrderTypeTWAP, model.OrderTypeVWAP, model.OrderTypeIceberg:
			return nil, &Error{Field: "time_in_force", Reason: fmt.Sprintf("%s incompatible with %s orders", tif, req.OrderType)}
		}
	}

	logger.WithFields(logger.Fields{
		"client_order_id": req.ClientOrderID,
		"venue":           req.Venue,
		"symbol":          req.Symbol,
		"side":            req.Side,
		"qty":             req.Quantity,
	}).Debug("order request validated")

	return &model.Order{
		ClientOrderID:     req.ClientOrderID,
		Venue:             req.Venue,
		Symbol:            req.Symbol,
		Side:              req.Side,
		OrderType:         req.OrderType,
		TimeInForce:       tif,
		RequestedQuantity: req.Quantity,
		FilledQuantity:    decimal.Zero,
		LimitPrice:        req.LimitPrice,
		StopPrice:         req.StopPrice,
		ReferencePrice:    req.ReferencePrice,
		ExpiresAt:         req.ExpiresAt,
		Status:            model.OrderStatusPending,
	}, nil
}
