package httppresentation

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	appinventory "github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.svc.Catalog.CreateProduct(r.Context(), appinventory.CreateProductInput{
		ID:    req.ID,
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProduct(p))
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProduct(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.svc.Catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), appinventory.UpdateProductInput{
		Name:  req.Name,
		Price: req.Price,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	stock, err := h.svc.Catalog.Restock(r.Context(), id, req.Delta)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: id, Stock: stock})
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	line, err := h.svc.Carts.AddItem(r.Context(), mustUser(r), req.ProductID, req.Quantity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartLine(line))
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.RemoveItem(r.Context(), mustUser(r), chi.URLParam(r, "productID")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.Clear(r.Context(), mustUser(r)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Carts.View(r.Context(), mustUser(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCart(view))
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Create.Execute(r.Context(), apporder.CreateOrderInput{UserID: mustUser(r)})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreatedOrder(res))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.List(r.Context(), mustUser(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Orders.Get(r.Context(), mustUser(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := toOrder(view.Order)
	out.Payment = toPayment(view.Payment)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Cancel.Execute(r.Context(), apporder.CancelOrderInput{
		UserID:  mustUser(r),
		OrderID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{
		OrderID:        res.OrderID,
		Status:         res.Status,
		PriorStatus:    res.PriorStatus,
		RefundRequired: res.RefundRequired,
		Message:        res.Message,
	})
}

func (h *Handler) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Intents.Execute(r.Context(), apppayment.CreateIntentInput{
		UserID:  mustUser(r),
		OrderID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	writeJSON(w, status, toIntent(res))
}

func (h *Handler) handleFetchRemotePayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Remote.Execute(r.Context(), apppayment.FetchRemoteInput{
		UserID:           mustUser(r),
		ExternalOrderRef: chi.URLParam(r, "externalOrderRef"),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remotePaymentResponse{Local: toPayment(res.Local), Remote: res.Remote})
}

var errBadQuery = errors.New("query parameter must be a positive integer")

// queryInt reads a positive integer parameter. Absent yields zero.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errBadQuery
	}
	return n, nil
}

func (h *Handler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sum, err := h.svc.Analytics.Sales(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSales(sum))
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	top, err := h.svc.Analytics.TopProducts(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]productSalesResponse, 0, len(top))
	for _, ps := range top {
		out = append(out, productSalesResponse{ProductID: ps.ProductID, QuantitySold: ps.QuantitySold, Revenue: money(ps.Revenue)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleStatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Analytics.StatusCounts(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusCountsResponse{Counts: counts.ByStatus, Total: counts.Total})
}
