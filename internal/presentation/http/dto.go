package httppresentation

import (
	"time"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	dominventory "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"

	"github.com/shopspring/decimal"
)

// money renders amounts with two decimals.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

type createProductRequest struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type updateProductRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type restockRequest struct {
	Delta int `json:"delta"`
}

type productResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProduct(p *dominventory.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     money(p.Price),
		Stock:     p.Stock,
		UpdatedAt: p.UpdatedAt,
	}
}

type stockResponse struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartLineResponse struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCartLine(l *domcart.Line) cartLineResponse {
	return cartLineResponse{ProductID: l.ProductID, Quantity: l.Quantity, UpdatedAt: l.UpdatedAt}
}

type cartViewLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
	Available bool   `json:"available"`
}

type cartResponse struct {
	UserID   string         `json:"user_id"`
	Lines    []cartViewLine `json:"lines"`
	Subtotal string         `json:"subtotal"`
}

func toCart(v *appcart.View) cartResponse {
	out := cartResponse{UserID: v.UserID, Lines: make([]cartViewLine, 0, len(v.Lines)), Subtotal: money(v.Subtotal)}
	for _, l := range v.Lines {
		out.Lines = append(out.Lines, cartViewLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money(l.LineTotal),
			Available: l.Available,
		})
	}
	return out
}

type orderLineResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Status      domorder.Status     `json:"status"`
	TotalAmount string              `json:"total_amount"`
	Lines       []orderLineResponse `json:"lines"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at,omitempty"`
	Payment     *paymentResponse    `json:"payment,omitempty"`
}

func toOrderLines(lines []domorder.Line) []orderLineResponse {
	out := make([]orderLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, orderLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
			LineTotal: money(l.Total()),
		})
	}
	return out
}

func toOrder(o *domorder.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalAmount: money(o.TotalAmount),
		Lines:       toOrderLines(o.Lines),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toCreatedOrder(r *apporder.CreateOrderResult) orderResponse {
	return orderResponse{
		ID:          r.OrderID,
		UserID:      r.UserID,
		Status:      r.Status,
		TotalAmount: money(r.TotalAmount),
		Lines:       toOrderLines(r.Lines),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.CreatedAt,
	}
}

type cancelResponse struct {
	OrderID        string          `json:"order_id"`
	Status         domorder.Status `json:"status"`
	PriorStatus    domorder.Status `json:"prior_status"`
	RefundRequired bool            `json:"refund_required"`
	Message        string          `json:"message"`
}

type paymentResponse struct {
	ID                 string            `json:"id"`
	OrderID            string            `json:"order_id"`
	Amount             string            `json:"amount"`
	Currency           string            `json:"currency"`
	Status             dompayment.Status `json:"status"`
	ExternalOrderRef   string            `json:"external_order_ref"`
	ExternalPaymentRef string            `json:"external_payment_ref,omitempty"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func toPayment(p *dompayment.Payment) *paymentResponse {
	if p == nil {
		return nil
	}
	return &paymentResponse{
		ID:                 p.ID,
		OrderID:            p.OrderID,
		Amount:             money(p.Amount),
		Currency:           p.Currency,
		Status:             p.Status,
		ExternalOrderRef:   p.ExternalOrderRef,
		ExternalPaymentRef: p.ExternalPaymentRef,
		UpdatedAt:          p.UpdatedAt,
	}
}

type intentResponse struct {
	PaymentID        string            `json:"payment_id"`
	OrderID          string            `json:"order_id"`
	Amount           string            `json:"amount"`
	Currency         string            `json:"currency"`
	Status           dompayment.Status `json:"status"`
	ExternalOrderRef string            `json:"external_order_ref"`
	KeyID            string            `json:"key_id"`
	Reused           bool              `json:"reused"`
}

func toIntent(r *apppayment.IntentResult) intentResponse {
	return intentResponse{
		PaymentID:        r.PaymentID,
		OrderID:          r.OrderID,
		Amount:           money(r.Amount),
		Currency:         r.Currency,
		Status:           r.Status,
		ExternalOrderRef: r.ExternalOrderRef,
		KeyID:            r.KeyID,
		Reused:           r.Reused,
	}
}

type remotePaymentResponse struct {
	Local  *paymentResponse       `json:"local"`
	Remote dompayment.RemoteOrder `json:"remote"`
}

type salesResponse struct {
	PaidOrders        int       `json:"paid_orders"`
	Revenue           string    `json:"revenue"`
	AverageOrderValue string    `json:"average_order_value"`
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
}

func toSales(s *apporder.SalesSummary) salesResponse {
	return salesResponse{
		PaidOrders:        s.PaidOrders,
		Revenue:           money(s.Revenue),
		AverageOrderValue: money(s.AverageOrderValue),
		From:              s.From,
		To:                s.To,
	}
}

type productSalesResponse struct {
	ProductID    string `json:"product_id"`
	QuantitySold int    `json:"quantity_sold"`
	Revenue      string `json:"revenue"`
}

type statusCountsResponse struct {
	Counts map[domorder.Status]int `json:"counts"`
	Total  int                     `json:"total"`
}
