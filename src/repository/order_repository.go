package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"orderexecutor/src/database"
	"orderexecutor/src/model"
)

// OrderRepository handles the durable side of the engine: orders, their
// append-only fills and the status-update audit trail.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main
// read/write database.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// SaveOrder inserts the order on first sight and updates the mutable
// lifecycle columns afterwards. The given order is updated with the
// generated ID on insert.
func (r *OrderRepository) SaveOrder(ctx context.Context, order *model.Order) error {
	if order.ID == 0 {
		existing, err := r.FindByClientOrderID(ctx, order.ClientOrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			order.ID = existing.ID
		}
	}

	if order.ID == 0 {
		if err := r.db.WithContext(ctx).Omit("Fills", "StatusUpdates").Create(order).Error; err != nil {
			logger.WithError(err).WithField("client_order_id", order.ClientOrderID).
				Error("failed to create order")
			return err
		}
		return nil
	}

	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"venue_order_id":     order.VenueOrderID,
			"status":             order.Status,
			"reason":             order.Reason,
			"filled_quantity":    order.FilledQuantity,
			"average_fill_price": order.AverageFillPrice,
			"submitted_at":       order.SubmittedAt,
			"last_updated_at":    order.LastUpdatedAt,
		}).Error
	if err != nil {
		logger.WithError(err).WithField("client_order_id", order.ClientOrderID).
			Error("failed to update order")
	}
	return err
}

// FindByClientOrderID fetches a single order by the caller-assigned ID.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithError(err).WithField("client_order_id", clientOrderID).
			Error("failed to fetch order by client order id")
		return nil, err
	}

	return &order, nil
}

// FindLatest returns the latest orders ordered from newest to oldest.
func (r *OrderRepository) FindLatest(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 20
	}

	var orders []model.Order

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		logger.WithError(err).Error("failed to fetch latest orders")
		return nil, err
	}

	return orders, nil
}

// RecordStatusUpdate appends one audit row. The trail is append-only: rows
// are inserted, never updated or deleted.
func (r *OrderRepository) RecordStatusUpdate(ctx context.Context, update *model.OrderStatusUpdate) error {
	if err := r.db.WithContext(ctx).Create(update).Error; err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"order_id": update.OrderID,
			"from":     update.FromStatus,
			"to":       update.ToStatus,
		}).Error("failed to record status update")
		return err
	}
	return nil
}

// RecordFill appends one fill row.
func (r *OrderRepository) RecordFill(ctx context.Context, fill *model.OrderFill) error {
	if err := r.db.WithContext(ctx).Create(fill).Error; err != nil {
		logger.WithError(err).WithFields(logger.Fields{
			"order_id": fill.OrderID,
			"fill_id":  fill.FillID,
		}).Error("failed to record fill")
		return err
	}
	return nil
}

// LoadAuditTrail returns every status update for an order in applied order,
// for replay-based state reconstruction.
func (r *OrderRepository) LoadAuditTrail(ctx context.Context, orderID uint) ([]model.OrderStatusUpdate, error) {
	var updates []model.OrderStatusUpdate

	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&updates).Error

	if err != nil {
		logger.WithError(err).WithField("order_id", orderID).
			Error("failed to load audit trail")
		return nil, err
	}

	return updates, nil
}

// LoadFills returns every fill for an order in applied order.
func (r *OrderRepository) LoadFills(ctx context.Context, orderID uint) ([]model.OrderFill, error) {
	var fills []model.OrderFill

	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&fills).Error

	if err != nil {
		logger.WithError(err).WithField("order_id", orderID).
			Error("failed to load fills")
		return nil, err
	}

	return fills, nil
}
