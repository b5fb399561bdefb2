package returnproduct

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rentora/rental-svc/internal/service/services/rentalsvc"
	"github.com/rentora/rental-svc/internal/transport/http/httperr"
)

type service interface {
	PartialReturn(
		ctx context.Context,
		orderID, productID int64,
		qty int64,
		returnedDate time.Time,
		actorID int64,
	) (*rentalsvc.PartialReturnResult, error)
}

// returnProductRequest represents a partial return request.
type returnProductRequest struct {
	ProductID        int64      `json:"productId"        validate:"gt=0"`
	ReturnedQuantity int64      `json:"returnedQuantity" validate:"gt=0"`
	ReturnedDate     *time.Time `json:"returnedDate"`
}

// Validate validates the return product request.
func (r *returnProductRequest) Validate() error {
	return validator.New().Struct(r)
}

// ReturnProduct handles the partial return request. An omitted
// returnedDate means the return happens now.
func ReturnProduct(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	returnReq := returnProductRequest{}
	if err := json.NewDecoder(r.Body).Decode(&returnReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for return product", "error", err)

		return
	}

	if err := returnReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for return product", "error", err)

		return
	}

	returnedDate := time.Now()
	if returnReq.ReturnedDate != nil {
		returnedDate = *returnReq.ReturnedDate
	}

	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)

	result, err := service.PartialReturn(
		r.Context(),
		orderID,
		returnReq.ProductID,
		returnReq.ReturnedQuantity,
		returnedDate,
		actorID,
	)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error returning product", "order_id", orderID, "product_id", returnReq.ProductID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("Error sending response for return product", "error", err)
	}
}
