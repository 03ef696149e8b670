package httppresentation

import (
	"context"
	"net/http"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	appinventory "github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	maxBodyBytes         = 1 << 20
)

// Services are the use cases the handler exposes.
type Services struct {
	Catalog   *appinventory.Catalog
	Carts     *appcart.Service
	Create    *apporder.CreateOrderUseCase
	Cancel    *apporder.CancelOrderUseCase
	Orders    *apporder.Queries
	Intents   *apppayment.CreateIntentUseCase
	Reconcile *apppayment.ReconcileUseCase
	Remote    *apppayment.FetchRemoteUseCase
	Analytics *apporder.Analytics
}

// UserDirectory learns contact addresses from verified tokens.
type UserDirectory interface {
	Remember(ctx context.Context, userID, email string) error
}

type Options struct {
	JWTSecret     []byte
	WebhookSecret []byte
	Directory     UserDirectory
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type Handler struct {
	svc     Services
	auth    *Authenticator
	webhook *webhookVerifier
	dir     UserDirectory
	metrics http.Handler

	log     observability.Logger
	tel     observability.Observability
	reqs    observability.Counter
	latency observability.Histogram
	hooks   observability.Counter
}

func NewHandler(svc Services, opts Options, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Handler{
		svc:     svc,
		auth:    NewAuthenticator(opts.JWTSecret),
		webhook: &webhookVerifier{secret: opts.WebhookSecret},
		dir:     opts.Directory,
		metrics: opts.Metrics,
		log:     tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:     tel,
		reqs:    m.Counter(observability.MHTTPRequests),
		latency: m.Histogram(observability.MHTTPRequestDuration),
		hooks:   m.Counter(observability.MWebhookEvents),
	}
}

// Router wires every route behind
// Trace → request logger → HTTP metrics → access log → recoverer → handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		h.withTrace,
		ObservabilityMiddleware(h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerTenantID) },
		),
		h.withHTTPMetrics,
		h.withAccessLog,
		middleware.Recoverer,
	)

	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	r.Post("/webhooks/payment", h.handlePaymentWebhook)

	r.Get("/products", h.handleListProducts)
	r.Get("/products/{id}", h.handleGetProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)

		r.Post("/products", h.handleCreateProduct)
		r.Put("/products/{id}", h.handleUpdateProduct)
		r.Delete("/products/{id}", h.handleDeleteProduct)
		r.Post("/products/{id}/stock", h.handleRestock)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.handleGetCart)
			r.Delete("/", h.handleClearCart)
			r.Post("/items", h.handleAddCartItem)
			r.Delete("/items/{productID}", h.handleRemoveCartItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.handleCreateOrder)
			r.Get("/", h.handleListOrders)
			r.Get("/{id}", h.handleGetOrder)
			r.Post("/{id}/cancel", h.handleCancelOrder)
			r.Post("/{id}/payment", h.handleCreatePaymentIntent)
		})

		r.Get("/payments/{externalOrderRef}/remote", h.handleFetchRemotePayment)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/sales", h.handleSalesSummary)
			r.Get("/products/top", h.handleTopProducts)
			r.Get("/orders/status", h.handleStatusCounts)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
