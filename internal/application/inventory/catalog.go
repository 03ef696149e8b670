package inventory

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseCreateProduct = "inventory.create_product"
	useCaseRestock       = "inventory.restock"
	useCaseUpdateProduct = "inventory.update_product"
	useCaseDeleteProduct = "inventory.delete_product"
)

type IDGenerator interface {
	NewID() string
}

// Catalog manages products for operators. Checkout never goes through it.
type Catalog struct {
	repo      domain.Repository
	ledger    *Ledger
	ids       IDGenerator
	publisher domoutbox.Publisher
	ins       application.Instruments
}

func NewCatalog(
	repo domain.Repository,
	ledger *Ledger,
	ids IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Catalog {
	return &Catalog{
		repo:      repo,
		ledger:    ledger,
		ids:       ids,
		publisher: publisher,
		ins:       application.NewInstruments(tel, inventoryService),
	}
}

type CreateProductInput struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

func (c *Catalog) CreateProduct(ctx context.Context, in CreateProductInput) (_ *domain.Product, err error) {
	ctx, run := c.ins.Begin(ctx, useCaseCreateProduct, "CreateProduct",
		attribute.String("product.name", in.Name),
	)
	defer func() { run.End(err) }()

	id := in.ID
	if id == "" {
		id = c.ids.NewID()
	}
	p, err := domain.NewProduct(id, in.Name, in.Price, in.Stock)
	if err != nil {
		run.Fail("PRODUCT_INVALID")
		return nil, application.NewValidation(err.Error())
	}
	if err := c.repo.Insert(ctx, p); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, application.WrapRepository(err, domain.ErrConflict)
	}
	run.With(observability.F("product_id", p.ID))
	return p, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*domain.Product, error) {
	return c.ledger.Get(ctx, id)
}

func (c *Catalog) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := c.repo.List(ctx)
	if err != nil {
		return nil, application.WrapRepository(err)
	}
	return products, nil
}

// Restock applies an operator adjustment and announces it.
func (c *Catalog) Restock(ctx context.Context, productID string, delta int) (_ int, err error) {
	ctx, run := c.ins.Begin(ctx, useCaseRestock, "Restock",
		attribute.String("product.id", productID),
	)
	defer func() { run.End(err) }()

	stock, err := c.ledger.Adjust(ctx, productID, delta)
	if err != nil {
		run.Fail(failureStatus(err))
		return 0, err
	}
	_ = c.ins.Publish(ctx, c.publisher, domain.NewStockAdjustedEvent(productID, delta, stock))
	return stock, nil
}

type UpdateProductInput struct {
	Name  string
	Price decimal.Decimal
}

// UpdateProduct changes name and price. Orders already placed keep the price
// they were placed at; carts pick up the new one the next time they are
// viewed or checked out.
func (c *Catalog) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (_ *domain.Product, err error) {
	ctx, run := c.ins.Begin(ctx, useCaseUpdateProduct, "UpdateProduct",
		attribute.String("product.id", id),
	)
	defer func() { run.End(err) }()

	p, err := c.repo.Get(ctx, id)
	if err != nil {
		run.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, application.WrapRepository(err, domain.ErrNotFound)
	}
	if err := p.Revise(in.Name, in.Price); err != nil {
		run.Fail("PRODUCT_INVALID")
		return nil, application.NewValidation(err.Error())
	}
	if err := c.repo.Update(ctx, p); err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, application.WrapRepository(err, domain.ErrNotFound)
	}
	run.With(observability.F("price", p.Price.StringFixed(2)))
	return p, nil
}

// DeleteProduct removes a product from the catalog. Order lines keep their
// snapshot; cart lines for it show as unavailable.
func (c *Catalog) DeleteProduct(ctx context.Context, id string) (err error) {
	ctx, run := c.ins.Begin(ctx, useCaseDeleteProduct, "DeleteProduct",
		attribute.String("product.id", id),
	)
	defer func() { run.End(err) }()

	if err := c.repo.Delete(ctx, id); err != nil {
		run.Fail("REPO_DELETE_FAILED")
		return application.WrapRepository(err, domain.ErrNotFound)
	}
	return nil
}
