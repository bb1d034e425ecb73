package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/application"
	appcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/catalog"
	appinventory "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/order"
	domcart "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const componentHTTPHandler = "http_server"

// Services are the application entry points the router dispatches to.
type Services struct {
	Catalog           *appcatalog.Service
	Inventory         *appinventory.Service
	Cart              *appcart.Service
	CreateOrder       *apporder.CreateOrderUseCase
	CancelOrder       *apporder.CancelOrderUseCase
	UpdateOrderStatus *apporder.UpdateOrderStatusUseCase
	GetOrder          *apporder.GetOrderUseCase
	ListOrders        *apporder.ListOrdersUseCase
}

type Handler struct {
	svc      Services
	metrics  http.Handler
	log      observability.Logger
	requests observability.Counter
	latency  observability.Histogram
}

// NewHandler wires the HTTP surface. metrics serves /metrics and may be nil.
func NewHandler(svc Services, tel observability.Observability, metrics http.Handler) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		svc:      svc,
		metrics:  metrics,
		log:      tel.Logger().With(observability.F("component", componentHTTPHandler)),
		requests: tel.Metrics().Counter(observability.MHTTPRequests),
		latency:  tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

// Router returns the chi router wrapped in an otelhttp server span.
// Chain: trace → request logger → access log → HTTP metrics → handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log), h.withAccessLog, h.withHTTPMetrics)

	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleListProducts)
		r.Get("/{productID}", h.handleGetProduct)
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Put("/{productID}", h.handleUpsertProduct)
			r.Post("/{productID}/restock", h.handleRestock)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/", h.handleGetCart)
		r.Delete("/", h.handleClearCart)
		r.Post("/items", h.handleAddCartItem)
		r.Put("/items/{productID}", h.handleUpdateCartItem)
		r.Delete("/items/{productID}", h.handleRemoveCartItem)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.handleCreateOrder)
		r.Get("/", h.handleListOrders)
		r.Get("/{orderID}", h.handleGetOrder)
		r.Post("/{orderID}/cancel", h.handleCancelOrder)
		r.Put("/{orderID}/status", h.handleUpdateOrderStatus)
	})

	return otelhttp.NewHandler(r, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

const (
	kindNotFound          = "NOT_FOUND"
	kindForbidden         = "FORBIDDEN"
	kindUnauthorized      = "UNAUTHORIZED"
	kindInsufficientStock = "INSUFFICIENT_STOCK"
	kindEmptyCart         = "EMPTY_CART"
	kindInvalidState      = "INVALID_STATE_TRANSITION"
	kindPaymentFailed     = "PAYMENT_OPERATION_FAILED"
	kindValidation        = "VALIDATION_FAILED"
	kindBadRequest        = "BAD_REQUEST"
	kindCanceled          = "REQUEST_CANCELED"
	kindInternal          = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

// writeDomainError maps application errors onto a status and a stable kind.
// Unrecognised errors are logged and surfaced as 500 without detail.
func (h *Handler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	status, kind := classifyError(err)
	if status == http.StatusInternalServerError {
		logctx.FromOr(ctx, h.log).Error("request_failed", observability.Err(err))
		writeError(w, status, kind, "internal error")
		return
	}
	writeError(w, status, kind, err.Error())
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, dominv.ErrNotFound),
		errors.Is(err, dompay.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, domorder.ErrForbidden),
		errors.Is(err, appcatalog.ErrForbidden),
		errors.Is(err, appinventory.ErrForbidden):
		return http.StatusForbidden, kindForbidden
	case errors.Is(err, dominv.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, kindInsufficientStock
	case errors.Is(err, domorder.ErrEmptyCart):
		return http.StatusUnprocessableEntity, kindEmptyCart
	case errors.Is(err, domorder.ErrInvalidStateTransition):
		return http.StatusConflict, kindInvalidState
	case errors.Is(err, dompay.ErrOperationFailed),
		errors.Is(err, dompay.ErrAlreadyRefunded):
		return http.StatusBadGateway, kindPaymentFailed
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domorder.ErrInvalidAddress),
		errors.Is(err, domorder.ErrInvalidStatus),
		errors.Is(err, domorder.ErrInvalidLine),
		errors.Is(err, dompay.ErrInvalidInfo),
		errors.Is(err, dominv.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrUserRequired),
		errors.Is(err, catalog.ErrInvalidProduct):
		return http.StatusBadRequest, kindValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, kindCanceled
	default:
		return http.StatusInternalServerError, kindInternal
	}
}
