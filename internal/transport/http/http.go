package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/rentora/rental-svc/internal/service/models/bill"
	"github.com/rentora/rental-svc/internal/service/models/order"
	"github.com/rentora/rental-svc/internal/service/services/rentalsvc"
	cancelorder "github.com/rentora/rental-svc/internal/transport/http/cancel_order"
	createorder "github.com/rentora/rental-svc/internal/transport/http/create_order"
	finalizereturn "github.com/rentora/rental-svc/internal/transport/http/finalize_return"
	generatebill "github.com/rentora/rental-svc/internal/transport/http/generate_bill"
	getorder "github.com/rentora/rental-svc/internal/transport/http/get_order"
	listorders "github.com/rentora/rental-svc/internal/transport/http/list_orders"
	returnproduct "github.com/rentora/rental-svc/internal/transport/http/return_product"
	updateorder "github.com/rentora/rental-svc/internal/transport/http/update_order"
	"github.com/rentora/rental-svc/pkg/http/middleware/trace"
	"github.com/rentora/rental-svc/pkg/logger"
)

type service interface {
	CreateOrder(ctx context.Context, model rentalsvc.CreateOrderModel) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID, actorID int64) (*order.Order, error)
	PartialReturn(
		ctx context.Context,
		orderID, productID int64,
		qty int64,
		returnedDate time.Time,
		actorID int64,
	) (*rentalsvc.PartialReturnResult, error)
	FinalizeReturn(ctx context.Context, orderID, actorID int64) (*order.Order, error)
	UpdateOrderFields(ctx context.Context, orderID int64, patch rentalsvc.UpdateOrderModel, actorID int64) (*order.Order, error)
	GenerateBill(ctx context.Context, orderID, actorID int64) (*bill.Bill, error)
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, int64, error)
	GetOrder(ctx context.Context, orderID int64) (*order.Order, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.getOrders)
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", h.getOrder)
				r.Patch("/", h.updateOrder)
				r.Post("/cancel", h.cancelOrder)
				r.Post("/returns", h.returnProduct)
				r.Post("/finalize", h.finalizeReturn)
				r.Post("/bill", h.generateBill)
			})
		})
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) getOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) updateOrder(w http.ResponseWriter, r *http.Request) {
	updateorder.UpdateOrder(w, r, h.service)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	cancelorder.CancelOrder(w, r, h.service)
}

func (h *HTTPTransport) returnProduct(w http.ResponseWriter, r *http.Request) {
	returnproduct.ReturnProduct(w, r, h.service)
}

func (h *HTTPTransport) finalizeReturn(w http.ResponseWriter, r *http.Request) {
	finalizereturn.FinalizeReturn(w, r, h.service)
}

func (h *HTTPTransport) generateBill(w http.ResponseWriter, r *http.Request) {
	generatebill.GenerateBill(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
