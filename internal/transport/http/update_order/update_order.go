package updateorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/service/services/rentalsvc"
	"github.com/rentora/rental-svc/internal/transport/http/httperr"
)

type service interface {
	UpdateOrderFields(ctx context.Context, orderID int64, patch rentalsvc.UpdateOrderModel, actorID int64) (*order.Order, error)
}

// updateOrderRequest is a partial patch; absent fields stay untouched.
// Quantities and totals are not patchable.
type updateOrderRequest struct {
	CustomerName  *string    `json:"customerName"`
	CustomerPhone *string    `json:"customerPhoneNumber"`
	RentingStart  *time.Time `json:"rentingStartDate"`
	RentingEnd    *time.Time `json:"rentingEndDate"`
	PaymentStatus *string    `json:"paymentStatus"`
	Status        *string    `json:"orderStatus"`
}

// toModel converts updateOrderRequest to rentalsvc.UpdateOrderModel.
func (r *updateOrderRequest) toModel() (*rentalsvc.UpdateOrderModel, error) {
	model := &rentalsvc.UpdateOrderModel{
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		RentingStart:  r.RentingStart,
		RentingEnd:    r.RentingEnd,
	}

	if r.PaymentStatus != nil {
		parsed, err := order.ParsePaymentStatus(*r.PaymentStatus)
		if err != nil {
			return nil, err
		}
		model.PaymentStatus = &parsed
	}
	if r.Status != nil {
		parsed, err := order.ParseStatus(*r.Status)
		if err != nil {
			return nil, err
		}
		model.Status = &parsed
	}

	return model, nil
}

// UpdateOrder handles the update order request.
func UpdateOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	updateReq := updateOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for update order", "error", err)

		return
	}

	model, err := updateReq.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error converting update order request to model", "error", err)

		return
	}

	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)

	updated, err := service.UpdateOrderFields(r.Context(), orderID, *model, actorID)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error updating order", "order_id", orderID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		slog.Error("Error sending response for update order", "error", err)
	}
}
