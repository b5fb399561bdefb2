package generatebill

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rentora/rental-svc/internal/service/models/bill"
	"github.com/rentora/rental-svc/internal/transport/http/httperr"
)

type service interface {
	GenerateBill(ctx context.Context, orderID, actorID int64) (*bill.Bill, error)
}

// GenerateBill handles the generate bill request. Calling it again for
// the same order returns the already generated bill.
func GenerateBill(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)

	b, err := service.GenerateBill(r.Context(), orderID, actorID)
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error generating bill", "order_id", orderID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(b); err != nil {
		slog.Error("Error sending response for generate bill", "error", err)
	}
}
