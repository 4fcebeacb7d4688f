package replay

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/model"
)

// auditSource is the slice of the repository replay needs.
type auditSource interface {
	FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error)
	LoadAuditTrail(ctx context.Context, orderID uint) ([]model.OrderStatusUpdate, error)
	LoadFills(ctx context.Context, orderID uint) ([]model.OrderFill, error)
}

// Result is the reconstructed view of an order plus any divergence found
// between the replayed trail and the stored row.
type Result struct {
	Order      *model.Order
	Replayed   model.OrderStatus
	Consistent bool
	Conflicts  []string
}

// Rebuild replays an order's append-only audit trail through the lifecycle
// table and cross-checks the outcome against the stored order row. Used for
// debugging and compliance review after the fact.
func Rebuild(ctx context.Context, source auditSource, clientOrderID string) (*Result, error) {
	order, err := source.FindByClientOrderID(ctx, clientOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %q not found", clientOrderID)
	}

	trail, err := source.LoadAuditTrail(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	fills, err := source.LoadFills(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	result := &Result{Order: order, Consistent: true}

	status := model.OrderStatusPending
	for i, update := range trail {
		if update.FromStatus != status {
			result.Consistent = false
			result.Conflicts = append(result.Conflicts,
				fmt.Sprintf("row %d: trail resumes from %s but replay is at %s", i, update.FromStatus, status))
		}
		if !model.CanTransition(update.FromStatus, update.ToStatus) {
			result.Consistent = false
			result.Conflicts = append(result.Conflicts,
				fmt.Sprintf("row %d: recorded transition %s -> %s is not in the lifecycle table", i, update.FromStatus, update.ToStatus))
		}
		status = update.ToStatus
	}
	result.Replayed = status

	if status != order.Status {
		result.Consistent = false
		result.Conflicts = append(result.Conflicts,
			fmt.Sprintf("replayed status %s differs from stored status %s", status, order.Status))
	}

	total := decimalSum(fills)
	if !total.Equal(order.FilledQuantity) {
		result.Consistent = false
		result.Conflicts = append(result.Conflicts,
			fmt.Sprintf("sum of fills %s differs from stored filled quantity %s", total, order.FilledQuantity))
	}

	logger.WithFields(logger.Fields{
		"client_order_id": clientOrderID,
		"replayed":        result.Replayed,
		"consistent":      result.Consistent,
	}).Info("audit trail replayed")

	return result, nil
}

func decimalSum(fills []model.OrderFill) decimal.Decimal {
	total := decimal.Zero
	for _, fill := range fills {
		total = total.Add(fill.Quantity)
	}
	return total
}
