package cart

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService    = "cart-service"
	useCaseAddItem = "cart.add_item"
	useCaseRemove  = "cart.remove_item"
	useCaseClear   = "cart.clear"
	useCaseTake    = "cart.take"
)

// ProductReader is the slice of the inventory ledger the cart needs.
type ProductReader interface {
	Get(ctx context.Context, productID string) (*dominv.Product, error)
}

// Service keeps per-user carts. Adding to a cart never touches stock; the
// quantity is only checked against current stock as a hint.
type Service struct {
	repo     domain.Repository
	products ProductReader
	ins      application.Instruments
}

func NewService(repo domain.Repository, products ProductReader, tel observability.Observability) *Service {
	return &Service{
		repo:     repo,
		products: products,
		ins:      application.NewInstruments(tel, cartService),
	}
}

// AddItem merges quantity into the user's line for productID. The merged
// quantity may not exceed the product's current stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (_ *domain.Line, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseAddItem, "AddItem",
		attribute.String("user.id", userID),
		attribute.String("product.id", productID),
		attribute.Int("cart.quantity", quantity),
	)
	defer func() { run.End(err) }()

	switch {
	case userID == "":
		run.Fail("USER_ID_REQUIRED")
		return nil, application.NewValidation("user id is required")
	case productID == "":
		run.Fail("PRODUCT_ID_REQUIRED")
		return nil, application.NewValidation("product id is required")
	case quantity <= 0:
		run.Fail("QUANTITY_INVALID")
		return nil, application.NewValidation(domain.ErrInvalidQuantity.Error())
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, err
	}

	line, err := s.repo.Merge(ctx, userID, productID, quantity, product.Stock)
	if errors.Is(err, domain.ErrLimitExceeded) {
		run.Fail("INSUFFICIENT_STOCK")
		return nil, &dominv.StockError{ProductID: productID, Requested: quantity, Available: product.Stock}
	}
	if err != nil {
		run.Fail("REPO_MERGE_FAILED")
		return nil, application.WrapRepository(err)
	}
	run.With(observability.F("cart_quantity", line.Quantity))
	return line, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (err error) {
	ctx, run := s.ins.Begin(ctx, useCaseRemove, "RemoveItem",
		attribute.String("user.id", userID),
		attribute.String("product.id", productID),
	)
	defer func() { run.End(err) }()

	if userID == "" || productID == "" {
		run.Fail("ID_REQUIRED")
		return application.NewValidation("user id and product id are required")
	}
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		run.Fail("REPO_REMOVE_FAILED")
		return application.WrapRepository(err, domain.ErrLineNotFound)
	}
	return nil
}

// Lines returns the user's raw cart lines.
func (s *Service) Lines(ctx context.Context, userID string) ([]domain.Line, error) {
	if userID == "" {
		return nil, application.NewValidation("user id is required")
	}
	lines, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, application.WrapRepository(err)
	}
	return lines, nil
}

// Clear empties the user's cart. Clearing an empty cart succeeds.
func (s *Service) Clear(ctx context.Context, userID string) (err error) {
	ctx, run := s.ins.Begin(ctx, useCaseClear, "ClearCart",
		attribute.String("user.id", userID),
	)
	defer func() { run.End(err) }()

	if userID == "" {
		run.Fail("USER_ID_REQUIRED")
		return application.NewValidation("user id is required")
	}
	if err := s.repo.Clear(ctx, userID); err != nil {
		run.Fail("REPO_CLEAR_FAILED")
		return application.WrapRepository(err)
	}
	return nil
}

// Take hands the user's lines to checkout and empties the cart in one step,
// so two checkouts racing on one cart cannot both consume it.
func (s *Service) Take(ctx context.Context, userID string) (_ []domain.Line, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseTake, "TakeCart",
		attribute.String("user.id", userID),
	)
	defer func() { run.End(err) }()

	if userID == "" {
		run.Fail("USER_ID_REQUIRED")
		return nil, application.NewValidation("user id is required")
	}
	lines, err := s.repo.Take(ctx, userID)
	if err != nil {
		run.Fail("REPO_TAKE_FAILED")
		return nil, application.WrapRepository(err)
	}
	run.With(observability.F("lines", len(lines)))
	return lines, nil
}

// Restore puts lines taken by a checkout that did not complete back into the
// cart.
func (s *Service) Restore(ctx context.Context, userID string, lines []domain.Line) error {
	if len(lines) == 0 {
		return nil
	}
	if err := s.repo.Restore(ctx, userID, lines); err != nil {
		return application.WrapRepository(err)
	}
	return nil
}

type ViewLine struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
	// Available is false when the product has since been removed from the catalog.
	Available bool
}

type View struct {
	UserID   string
	Lines    []ViewLine
	Subtotal decimal.Decimal
}

// View prices the cart at current catalog prices. The order, not the cart,
// fixes the price a customer pays.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &View{UserID: userID, Lines: make([]ViewLine, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		vl := ViewLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: decimal.Zero, LineTotal: decimal.Zero}
		p, perr := s.products.Get(ctx, l.ProductID)
		switch {
		case perr == nil:
			vl.Name = p.Name
			vl.UnitPrice = p.Price
			vl.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
			vl.Available = true
			view.Subtotal = view.Subtotal.Add(vl.LineTotal)
		case errors.Is(perr, dominv.ErrNotFound):
		default:
			return nil, perr
		}
		view.Lines = append(view.Lines, vl)
	}
	return view, nil
}
