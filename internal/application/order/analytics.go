package order

import (
	"context"
	"sort"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseSalesSummary = "order.sales_summary"
	useCaseTopProducts  = "order.top_products"

	DefaultSalesWindow    = 30 * 24 * time.Hour
	DefaultTopProducts    = 5
	maxTopProducts        = 100
	maxSalesWindowInHours = 366 * 24
)

// Analytics reports on paid orders. Revenue is what customers were charged:
// the unit prices frozen on each order, not the current catalog.
type Analytics struct {
	repo domain.Reporter
	now  func() time.Time
	ins  application.Instruments
}

func NewAnalytics(repo domain.Reporter, tel observability.Observability) *Analytics {
	return &Analytics{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		ins:  application.NewInstruments(tel, orderService),
	}
}

type SalesSummary struct {
	PaidOrders        int
	Revenue           decimal.Decimal
	AverageOrderValue decimal.Decimal
	From              time.Time
	To                time.Time
}

// Sales sums the PAID orders created within window of now. A zero window
// uses DefaultSalesWindow.
func (a *Analytics) Sales(ctx context.Context, window time.Duration) (_ *SalesSummary, err error) {
	if window == 0 {
		window = DefaultSalesWindow
	}
	ctx, run := a.ins.Begin(ctx, useCaseSalesSummary, "SalesSummary",
		attribute.Float64("sales.window_hours", window.Hours()),
	)
	defer func() { run.End(err) }()

	if window < 0 || window.Hours() > maxSalesWindowInHours {
		run.Fail("WINDOW_INVALID")
		return nil, application.NewValidation("window must be between 1 hour and 366 days")
	}
	to := a.now()
	from := to.Add(-window)
	orders, err := a.repo.ListByStatus(ctx, domain.StatusPaid, from)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, application.WrapRepository(err)
	}

	sum := &SalesSummary{Revenue: decimal.Zero, AverageOrderValue: decimal.Zero, From: from, To: to}
	for _, o := range orders {
		sum.PaidOrders++
		sum.Revenue = sum.Revenue.Add(o.TotalAmount)
	}
	if sum.PaidOrders > 0 {
		sum.AverageOrderValue = sum.Revenue.Div(decimal.NewFromInt(int64(sum.PaidOrders))).Round(2)
	}
	run.With(observability.F("paid_orders", sum.PaidOrders))
	return sum, nil
}

type ProductSales struct {
	ProductID    string
	QuantitySold int
	Revenue      decimal.Decimal
}

// TopProducts ranks products by quantity sold across all PAID orders. Ties
// go to the higher revenue, then to the lower product id.
func (a *Analytics) TopProducts(ctx context.Context, limit int) (_ []ProductSales, err error) {
	if limit == 0 {
		limit = DefaultTopProducts
	}
	ctx, run := a.ins.Begin(ctx, useCaseTopProducts, "TopProducts",
		attribute.Int("sales.limit", limit),
	)
	defer func() { run.End(err) }()

	if limit < 0 || limit > maxTopProducts {
		run.Fail("LIMIT_INVALID")
		return nil, application.NewValidation("limit must be between 1 and 100")
	}
	orders, err := a.repo.ListByStatus(ctx, domain.StatusPaid, time.Time{})
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, application.WrapRepository(err)
	}

	byProduct := make(map[string]*ProductSales)
	for _, o := range orders {
		for _, l := range o.Lines {
			ps, ok := byProduct[l.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: l.ProductID, Revenue: decimal.Zero}
				byProduct[l.ProductID] = ps
			}
			ps.QuantitySold += l.Quantity
			ps.Revenue = ps.Revenue.Add(l.Total())
		}
	}
	out := make([]ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		switch {
		case out[i].QuantitySold != out[j].QuantitySold:
			return out[i].QuantitySold > out[j].QuantitySold
		case !out[i].Revenue.Equal(out[j].Revenue):
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		default:
			return out[i].ProductID < out[j].ProductID
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type StatusCounts struct {
	ByStatus map[domain.Status]int
	Total    int
}

// StatusCounts reports every lifecycle status, including those with no
// orders.
func (a *Analytics) StatusCounts(ctx context.Context) (*StatusCounts, error) {
	counts, err := a.repo.CountByStatus(ctx)
	if err != nil {
		return nil, application.WrapRepository(err)
	}
	out := &StatusCounts{ByStatus: make(map[domain.Status]int, 3)}
	for _, s := range []domain.Status{domain.StatusCreated, domain.StatusPaid, domain.StatusCancelled} {
		out.ByStatus[s] = counts[s]
	}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}
