package finalizereturn

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
	FinalizeReturn(ctx context.Context, orderID, actorID int64) (*order.Order, error)
}

// FinalizeReturn handles the finalize return request.
func FinalizeReturn(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)

	finalized, err := service.FinalizeReturn(r.Context(), orderID, actorID)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error finalizing return", "order_id", orderID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(finalized); err != nil {
		slog.Error("Error sending response for finalize return", "error", err)
	}
}
