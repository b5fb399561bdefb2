package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/service/services/rentalsvc"
	"github.com/rentora/rental-svc/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, model rentalsvc.CreateOrderModel) (*order.Order, error)
}

// lineInCreateOrderRequest represents one requested product line.
type lineInCreateOrderRequest struct {
	ProductID    int64 `json:"productId"    validate:"gt=0"`
	RentedAmount int64 `json:"rentedAmount" validate:"gt=0"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	CustomerName  string                     `json:"customerName"        validate:"required"`
	CustomerPhone string                     `json:"customerPhoneNumber" validate:"required"`
	RentingStart  time.Time                  `json:"rentingStartDate"    validate:"required"`
	RentingEnd    *time.Time                 `json:"rentingEndDate"`
	PaymentStatus string                     `json:"paymentStatus"`
	CreatedBy     int64                      `json:"createdBy"           validate:"gt=0"`
	Lines         []lineInCreateOrderRequest `json:"products"            validate:"required,min=1,dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

// toModel converts createOrderRequest to rentalsvc.CreateOrderModel.
func (r *createOrderRequest) toModel(idempotencyKey string) (*rentalsvc.CreateOrderModel, error) {
	var paymentStatus order.PaymentStatus
	if r.PaymentStatus != "" {
		parsed, err := order.ParsePaymentStatus(r.PaymentStatus)
		if err != nil {
			return nil, err
		}
		paymentStatus = parsed
	}

	lines := make([]rentalsvc.CreateOrderLineModel, len(r.Lines))
	for i, line := range r.Lines {
		lines[i] = rentalsvc.CreateOrderLineModel{
			ProductID:    line.ProductID,
			RentedAmount: line.RentedAmount,
		}
	}

	return &rentalsvc.CreateOrderModel{
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		RentingStart:   r.RentingStart,
		RentingEnd:     r.RentingEnd,
		PaymentStatus:  paymentStatus,
		IdempotencyKey: idempotencyKey,
		CreatedBy:      r.CreatedBy,
		Lines:          lines,
	}, nil
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderReq := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := orderReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	model, err := orderReq.toModel(r.Header.Get("Idempotency-Key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error converting create order request to model", "error", err)

		return
	}

	created, err := service.CreateOrder(r.Context(), *model)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error creating order", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		slog.Error("Error sending response for create order", "error", err)
	}
}
