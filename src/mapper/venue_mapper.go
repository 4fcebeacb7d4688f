package mapper

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderexecutor/src/connectors"
	"orderexecutor/src/model"
)

// FillFromNotification converts a venue fill notification into the local
// append-only fill record. Quality metrics are filled in by the engine once
// the owning order is known. Venues that omit fill IDs get a generated one so
// the record still deduplicates downstream.
func FillFromNotification(note connectors.VenueNotification, orderID uint) (*model.OrderFill, error) {
	if note.Kind != connectors.NotificationFill {
		return nil, fmt.Errorf("notification kind %q is not a fill", note.Kind)
	}
	if note.Fill == nil {
		return nil, fmt.Errorf("fill notification for %s has no fill payload", note.VenueOrderID)
	}
	if note.Fill.Quantity.Sign() <= 0 {
		return nil, fmt.Errorf("fill for %s has non-positive quantity %s", note.VenueOrderID, note.Fill.Quantity)
	}
	if note.Fill.Price.Sign() <= 0 {
		return nil, fmt.Errorf("fill for %s has non-positive price %s", note.VenueOrderID, note.Fill.Price)
	}

	fillID := note.Fill.FillID
	if fillID == "" {
		fillID = uuid.NewString()
	}

	occurredAt := note.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return &model.OrderFill{
		OrderID:      orderID,
		FillID:       fillID,
		VenueOrderID: note.VenueOrderID,
		Price:        note.Fill.Price,
		Quantity:     note.Fill.Quantity,
		IsMaker:      note.Fill.IsMaker,
		OccurredAt:   occurredAt,
	}, nil
}

// StatusFromVenue maps a venue-reported status string onto the local
// lifecycle, used when reconciling via queryStatus.
func StatusFromVenue(venueStatus string) (model.OrderStatus, error) {
	switch venueStatus {
	case "new", "open", "accepted":
		return model.OrderStatusAcknowledged, nil
	case "partially_filled":
		return model.OrderStatusPartiallyFilled, nil
	case "filled":
		return model.OrderStatusFilled, nil
	case "cancelled", "canceled":
		return model.OrderStatusCancelled, nil
	case "rejected":
		return model.OrderStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown venue status %q", venueStatus)
	}
}

// RejectReasonFromNotification prefers the venue's message, falling back to
// the error-code map.
func RejectReasonFromNotification(note connectors.VenueNotification) string {
	if note.Reason != "" {
		return note.Reason
	}
	if note.Code != 0 {
		return connectors.RejectReason(note.Code)
	}
	return "venue reject"
}
