package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/transport/http/httperr"
)

type service interface {
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, int64, error)
}

type queryOrdersRequest struct {
	Ids    []int64 `schema:"ids,omitempty"`
	Search string  `schema:"search,omitempty"`
	Status string  `schema:"status,omitempty"`
	Limit  int     `schema:"limit,omitempty"`
	Offset int     `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel() order.QueryOrdersModel {
	return order.QueryOrdersModel{
		Ids:    q.Ids,
		Search: q.Search,
		Status: q.Status,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
}

type listOrdersResponse struct {
	Orders []order.Order `json:"orders"`
	Total  int64         `json:"total"`
}

func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	err := decoder.Decode(query, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	orders, total, err := service.GetOrders(r.Context(), query.ToModel())
	if err != nil {
		httperr.Write(w, err)
		slog.Error("Error getting orders", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listOrdersResponse{Orders: orders, Total: total}); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}
