package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/engine"
	"orderexecutor/src/model"
	"orderexecutor/src/risk"
	"orderexecutor/src/validation"
)

// orderService is the slice of the engine the HTTP surface needs.
type orderService interface {
	Submit(ctx context.Context, req model.OrderRequest) (*model.Order, error)
	Cancel(ctx context.Context, clientOrderID string) error
	Status(clientOrderID string) (*model.Order, error)
}

type errorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SubmitOrderHandler accepts a new order, runs it through validation, risk
// and dispatch, and returns the resulting order snapshot. Rejections come
// back as 422 with the rejected order attached so the caller can see the
// recorded reason.
func SubmitOrderHandler(service orderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		order, err := service.Submit(r.Context(), req)
		if err != nil {
			var verr *validation.Error
			switch {
			case errors.As(err, &verr):
				writeError(w, http.StatusUnprocessableEntity, errorResponse{
					Error:  "validation failed",
					Field:  verr.Field,
					Reason: verr.Reason,
				})
			case errors.Is(err, risk.ErrRiskRejected):
				writeJSON(w, http.StatusUnprocessableEntity, order)
			default:
				logger.WithError(err).WithField("client_order_id", req.ClientOrderID).
					Error("failed to submit order")
				writeError(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
			}
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

// CancelOrderHandler requests a cancel for a live order. Cancels of terminal
// orders are rejected with 409 and the order is left untouched.
func CancelOrderHandler(service orderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientOrderID := chi.URLParam(r, "clientOrderID")
		if clientOrderID == "" {
			writeError(w, http.StatusBadRequest, errorResponse{Error: "missing clientOrderID"})
			return
		}

		err := service.Cancel(r.Context(), clientOrderID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
		case errors.Is(err, engine.ErrUnknownOrder):
			writeError(w, http.StatusNotFound, errorResponse{Error: "order not found"})
		case errors.Is(err, model.ErrInvalidStateTransition):
			writeError(w, http.StatusConflict, errorResponse{Error: "order is in a terminal state"})
		default:
			logger.WithError(err).WithField("client_order_id", clientOrderID).
				Error("failed to cancel order")
			writeError(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		}
	}
}

// GetOrderHandler returns the current snapshot of one order.
func GetOrderHandler(service orderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientOrderID := chi.URLParam(r, "clientOrderID")
		if clientOrderID == "" {
			writeError(w, http.StatusBadRequest, errorResponse{Error: "missing clientOrderID"})
			return
		}

		order, err := service.Status(clientOrderID)
		if err != nil {
			if errors.Is(err, engine.ErrUnknownOrder) {
				writeError(w, http.StatusNotFound, errorResponse{Error: "order not found"})
				return
			}
			logger.WithError(err).WithField("client_order_id", clientOrderID).
				Error("failed to fetch order")
			writeError(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}
