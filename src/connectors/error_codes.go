package connectors

import "fmt"

// VenueRejectCodes maps venue bizError codes to human-readable messages used
// as reject reasons in the audit trail.
var VenueRejectCodes = map[int]string{
	11002: "TE_UNKNOWN_ERROR",             // Unknown error
	11003: "TE_INVALID_ARGUMENT",          // Invalid argument (missing or wrong param)
	11005: "TE_MAINTENANCE_MODE",          // System maintenance mode
	11012: "TE_INVALID_QTY",               // Invalid quantity in order
	11013: "TE_INVALID_PRICE",             // Invalid price in order
	11015: "TE_PRICE_TOO_SMALL",           // Price below minimum increment / tick size
	11016: "TE_PRICE_TOO_LARGE",           // Price too large
	11017: "TE_QTY_TOO_SMALL",             // Quantity below minimum lot
	11018: "TE_QTY_TOO_LARGE",             // Quantity above maximum lot
	11050: "TE_RISK_LIMIT_EXCEEDED",       // Venue-side risk limit exceeded
	11051: "TE_INSUFFICIENT_BALANCE",      // Not enough balance
	11070: "TE_MARKET_CLOSED",             // Market closed
	11081: "TE_CLIENT_ID_EXIST",           // Duplicate client order ID
	11082: "TE_CLIENT_ID_INVALID",         // Invalid client order ID
	11100: "TE_TOO_MANY_ORDERS",           // Too many outstanding orders
	11120: "TE_CONTRACT_NOT_FOUND",        // Contract (symbol) not found
	11121: "TE_CONTRACT_NOT_ALLOWED",      // Contract not allowed
	11130: "TE_TIF_NOT_SUPPORTED",         // Time-in-force not supported for order type
	11131: "TE_ORDER_TYPE_NOT_SUPPORTED",  // Order type disabled for this symbol
	11140: "TE_CANCEL_UNKNOWN_ORDER",      // Cancel for an order the venue does not know
	11141: "TE_CANCEL_ALREADY_TERMINAL",   // Cancel after the order already completed
}

// RejectReason returns a human-readable message for a venue error code.
// If the code is unknown, returns a generic message including the code.
func RejectReason(code int) string {
	if msg, ok := VenueRejectCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_VENUE_ERROR_%d", code)
}
