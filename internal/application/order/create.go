package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dominv "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
)

var (
	ErrNotFound               = domain.ErrNotFound
	ErrEmptyCart              = domain.ErrEmptyCart
	ErrAlreadyCancelled       = domain.ErrAlreadyCancelled
	ErrInvalidStateTransition = domain.ErrInvalidStateTransition
)

// CreateOrderUseCase turns a user's cart into a CREATED order.
type CreateOrderUseCase struct {
	repo      domain.Repository
	carts     CartPort
	stock     StockPort
	ids       IDGenerator
	publisher domoutbox.Publisher
	ins       application.Instruments
}

func NewCreateOrderUseCase(
	repo domain.Repository,
	carts CartPort,
	stock StockPort,
	ids IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		repo:      repo,
		carts:     carts,
		stock:     stock,
		ids:       ids,
		publisher: publisher,
		ins:       application.NewInstruments(tel, orderService),
	}
}

type CreateOrderInput struct {
	UserID string
}

type CreateOrderResult struct {
	OrderID     string
	UserID      string
	Lines       []domain.Line
	TotalAmount decimal.Decimal
	Status      domain.Status
	CreatedAt   time.Time
}

// Execute takes the cart, snapshots it at current prices, debits stock for
// every line and stores the order.
//
// The cart is taken atomically up front, so concurrent checkouts of one cart
// yield one order and the rest see an empty cart. Any failure after that puts
// the lines back. Stock is debited before the order is stored; if storing
// fails the debits are reversed, so a failed checkout never holds stock.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	ctx, run := uc.ins.Begin(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.user_id", cmd.UserID),
	)
	defer func() { run.End(err) }()

	if cmd.UserID == "" {
		run.Fail("USER_ID_REQUIRED")
		return nil, application.NewValidation("user id is required")
	}

	cartLines, err := uc.carts.Take(ctx, cmd.UserID)
	if err != nil {
		run.Fail("CART_TAKE_FAILED")
		return nil, err
	}
	if len(cartLines) == 0 {
		run.Fail("CART_EMPTY")
		return nil, ErrEmptyCart
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := uc.carts.Restore(context.WithoutCancel(ctx), cmd.UserID, cartLines); rerr != nil {
			run.Logger().Error("cart_restore_failed",
				observability.F("user_id", cmd.UserID),
				observability.Err(rerr),
			)
		}
	}()

	lines := make([]domain.Line, 0, len(cartLines))
	debits := make([]dominv.Adjustment, 0, len(cartLines))
	for _, cl := range cartLines {
		product, perr := uc.stock.Get(ctx, cl.ProductID)
		if perr != nil {
			run.Fail("PRODUCT_LOOKUP_FAILED")
			return nil, perr
		}
		// Early and friendly; Apply below is what actually guards the stock.
		if !product.Covers(cl.Quantity) {
			run.Fail("INSUFFICIENT_STOCK")
			return nil, &dominv.StockError{ProductID: product.ID, Requested: cl.Quantity, Available: product.Stock}
		}
		lines = append(lines, domain.Line{
			ProductID: product.ID,
			Quantity:  cl.Quantity,
			UnitPrice: product.Price,
		})
		debits = append(debits, dominv.Adjustment{ProductID: product.ID, Delta: -cl.Quantity})
	}

	entity, derr := domain.New(uc.ids.NewID(), cmd.UserID, lines)
	if derr != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, fmt.Errorf("order: construct: %w", derr)
	}
	run.Span().SetAttributes(attribute.String("order.id", entity.ID))

	if err := uc.stock.Apply(ctx, debits); err != nil {
		if errors.Is(err, dominv.ErrInsufficientStock) {
			run.Fail("INSUFFICIENT_STOCK")
		} else {
			run.Fail("STOCK_DEBIT_FAILED")
		}
		return nil, err
	}

	if err := uc.repo.Insert(ctx, entity); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		if rerr := uc.stock.Apply(context.WithoutCancel(ctx), dominv.Inverse(debits)); rerr != nil {
			run.Fail("STOCK_RESTORE_FAILED")
			return nil, errors.Join(application.WrapRepository(err), rerr)
		}
		return nil, application.WrapRepository(err)
	}

	if perr := uc.ins.Publish(ctx, uc.publisher, domain.NewOrderCreatedEvent(entity)); perr != nil {
		run.With(observability.F("event_publish_error", perr.Error()))
	}

	run.Span().AddEvent("order.created",
		trace.WithAttributes(
			attribute.String("order.id", entity.ID),
			attribute.String("order.total", entity.TotalAmount.StringFixed(2)),
		),
	)
	run.With(
		observability.F("order_id", entity.ID),
		observability.F("lines", len(entity.Lines)),
	)

	return &CreateOrderResult{
		OrderID:     entity.ID,
		UserID:      entity.UserID,
		Lines:       entity.Lines,
		TotalAmount: entity.TotalAmount,
		Status:      entity.Status,
		CreatedAt:   entity.CreatedAt,
	}, nil
}
