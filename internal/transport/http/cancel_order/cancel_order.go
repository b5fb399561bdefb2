package cancelorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/transport/http/httperr"
)

type service interface {
	CancelOrder(ctx context.Context, orderID, actorID int64) (*order.Order, error)
}

// CancelOrder handles the cancel order request.
func CancelOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)

	cancelled, err := service.CancelOrder(r.Context(), orderID, actorID)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error cancelling order", "order_id", orderID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cancelled); err != nil {
		slog.Error("Error sending response for cancel order", "error", err)
	}
}
